package main

import (
	"fmt"
	"time"

	"github.com/UnicodeSec/druid/internal/interval"
	"github.com/UnicodeSec/druid/internal/lease"

	"github.com/spf13/cobra"
)

var (
	lockTask       string
	lockGroup      string
	lockDataSource string
	lockPriority   int
	lockKind       string
	lockStart      string
	lockEnd        string
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Try to grant a lease over one interval (spec §4.1 try_lock)",
	Long: `lock builds a fresh Lockbox, registers one task, and calls TryLock
once over [--start, --end). It prints the granted Lease as JSON, or the
Lockbox's error (ErrContention, ErrRevoked, ...) to stderr.`,
	RunE: runLock,
}

func init() {
	f := lockCmd.Flags()
	f.StringVar(&lockTask, "task", "", "task id (default: generated)")
	f.StringVar(&lockGroup, "group", "group-1", "group id")
	f.StringVar(&lockDataSource, "datasource", "wikipedia", "data source name")
	f.IntVar(&lockPriority, "priority", 1, "task priority")
	f.StringVar(&lockKind, "kind", "EXCLUSIVE", "SHARED or EXCLUSIVE")
	f.StringVar(&lockStart, "start", "", "interval start, RFC3339 (required)")
	f.StringVar(&lockEnd, "end", "", "interval end, RFC3339 (required)")
	_ = lockCmd.MarkFlagRequired("start")
	_ = lockCmd.MarkFlagRequired("end")
}

func runLock(cmd *cobra.Command, args []string) error {
	start, err := time.Parse(time.RFC3339, lockStart)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, lockEnd)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	iv, err := interval.New(start, end)
	if err != nil {
		return err
	}

	h := newHarness()
	task := h.addTask(lockTask, lockGroup, lockDataSource, lockPriority)

	l, err := h.lockbox.TryLock(task.ID, iv, lease.Kind(lockKind))
	if err != nil {
		return err
	}
	return printJSON(l)
}
