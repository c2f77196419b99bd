package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gitrdm/deltablue/pkg/deltablue"
)

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the version, build information, and runtime details.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := deltablue.GetVersionInfo()
			return render(cmd.OutOrStdout(), opts.cfg.Output, info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "deltablue version %s\n  Go version: %s\n  Platform: %s/%s\n",
					info.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
				return err
			})
		},
	}
}
