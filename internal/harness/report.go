package harness

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gitrdm/deltablue/internal/config"
	"github.com/gitrdm/deltablue/pkg/deltablue"
)

// Report is the result of one harness run.
type Report struct {
	RunID           string                  `json:"run_id" yaml:"run_id"`
	Benchmark       string                  `json:"benchmark" yaml:"benchmark"`
	Version         string                  `json:"version" yaml:"version"`
	Iterations      int                     `json:"iterations" yaml:"iterations"`
	WarmUp          int                     `json:"warmup" yaml:"warmup"`
	InnerIterations int                     `json:"inner_iterations" yaml:"inner_iterations"`
	Copies          []CopyResult            `json:"copies" yaml:"copies"`
	TotalMicros     int64                   `json:"total_us" yaml:"total_us"`
	Stats           *deltablue.PlannerStats `json:"planner_stats,omitempty" yaml:"planner_stats,omitempty"`
}

// CopyResult holds the measured iterations of one benchmark copy.
type CopyResult struct {
	Copy           int     `json:"copy" yaml:"copy"`
	RuntimesMicros []int64 `json:"runtimes_us" yaml:"runtimes_us"`
	AverageMicros  int64   `json:"average_us" yaml:"average_us"`
	TotalMicros    int64   `json:"total_us" yaml:"total_us"`
}

// Write renders r in the given output format.
func Write(w io.Writer, format string, r *Report) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	case config.OutputText, "":
		return WriteText(w, r)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteText prints r in the classic harness format:
//
//	Starting DeltaBlue benchmark ...
//	DeltaBlue: iterations=1 runtime: 1234us
//	DeltaBlue: iterations=1 average: 1234us total: 1234us
//
//
//	Total Runtime: 1234us
//
// With several copies, each copy's lines are labelled DeltaBlue#<copy>.
func WriteText(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}
	for _, c := range r.Copies {
		name := r.Benchmark
		if len(r.Copies) > 1 {
			name = fmt.Sprintf("%s#%d", r.Benchmark, c.Copy)
		}
		ew.printf("Starting %s benchmark ...\n", name)
		for _, us := range c.RuntimesMicros {
			ew.printf("%s: iterations=1 runtime: %dus\n", name, us)
		}
		ew.printf("%s: iterations=%d average: %dus total: %dus\n\n",
			name, len(c.RuntimesMicros), c.AverageMicros, c.TotalMicros)
		ew.printf("\n")
	}
	ew.printf("Total Runtime: %dus\n", r.TotalMicros)
	return ew.err
}

// errWriter remembers the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
