package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/UnicodeSec/druid/internal/logging"
	"github.com/UnicodeSec/druid/internal/sampler"

	"github.com/spf13/cobra"
)

var sampleMaxRows int

var sampleCmd = &cobra.Command{
	Use:   "sample <file>",
	Short: "Preview rows from a file through the Sampler (spec §4.6)",
	Long: `sample reads one "key=value|key=value"-encoded row per line from
file via sampler.PassthroughFormat and runs them through Sampler.Sample
with no dataSchema, reproducing the Sampler's documented no-schema
behavior: every row is reported raw-only with an unparseable-timestamp
error.`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().IntVar(&sampleMaxRows, "max-rows", 0, "row budget (default: sampler.DefaultConfig().MaxRows)")
}

func runSample(cmd *cobra.Command, args []string) error {
	lines, err := readLines(args[0])
	if err != nil {
		return err
	}

	s := sampler.New(logging.NewLogger(), nil)
	cfg := sampler.Config{MaxRows: sampleMaxRows}
	resp, err := s.Sample(sampler.SliceSource{Rows: lines}, sampler.PassthroughFormat{}, nil, &cfg)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(line) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}
