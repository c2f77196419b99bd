// Command deltablue runs the DeltaBlue constraint-planner benchmark.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
