// Command lockboxctl is an in-process harness for the Lockbox, the
// Segment Allocator and the Sampler: every subcommand wires the
// library's in-memory reference journal/catalog/segment-index
// together, drives one operation, and prints the result as JSON. It is
// not a server and not a second implementation of the core's logic —
// it exists for manual smoke-testing, the way jontk-slurm-client's
// slurm-cli drives its REST client from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lockboxctl",
	Short: "Smoke-test harness for the lease/segment-allocation core",
	Long: `lockboxctl drives the Lockbox, the Segment Allocator and the
Sampler in-process against the library's in-memory reference
journal/catalog/segment-index. Each invocation starts from empty state;
it is a demonstration and ad hoc test tool, not a long-running service.`,
}

func init() {
	rootCmd.AddCommand(allocateCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(scenarioCmd)
}

func printJSON(v any) error {
	enc := jsonEncoder(os.Stdout)
	return enc.Encode(v)
}
