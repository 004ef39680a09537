// Package lockconfig holds the Lockbox's tunable knobs (spec §6
// "Configuration knobs"). There is no file or environment parsing here
// — Non-goals excludes configuration-file parsing from the core — but
// the struct still round-trips through YAML via gopkg.in/yaml.v3 tags
// so a host process can embed it in its own config file.
package lockconfig

import "time"

// Config holds the Lockbox's tunable knobs, each defaulted when absent.
type Config struct {
	// LockTimeout bounds how long a blocking lock() call waits for a
	// lease before returning ErrLockTimeout.
	LockTimeout time.Duration `yaml:"lockTimeout"`

	// MaxNumBatchTasks caps how many partition identities a single
	// Bulk Allocator request may mint in one call.
	MaxNumBatchTasks int `yaml:"maxNumBatchTasks"`

	// MaxRetry bounds retryable-operation attempts made by callers
	// that choose to retry Contention failures. The core itself never
	// retries autonomously (spec §7); this is advisory for clients.
	MaxRetry int `yaml:"maxRetry"`

	// TaskStatusCheckPeriod is how often a host process should poll
	// the task catalog for tasks that died without calling remove().
	TaskStatusCheckPeriod time.Duration `yaml:"taskStatusCheckPeriod"`
}

// DefaultConfig returns a Config with every knob set to its documented
// default.
func DefaultConfig() Config {
	return Config{
		LockTimeout:           5 * time.Minute,
		MaxNumBatchTasks:      100,
		MaxRetry:              3,
		TaskStatusCheckPeriod: 60 * time.Second,
	}
}

// WithDefaults fills any zero-valued field of cfg with the
// corresponding DefaultConfig value, so a caller supplying a partially
// populated Config (e.g. decoded from a host's YAML file, only
// overriding LockTimeout) still gets sane values everywhere else.
func (cfg Config) WithDefaults() Config {
	def := DefaultConfig()
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	if cfg.MaxNumBatchTasks <= 0 {
		cfg.MaxNumBatchTasks = def.MaxNumBatchTasks
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = def.MaxRetry
	}
	if cfg.TaskStatusCheckPeriod <= 0 {
		cfg.TaskStatusCheckPeriod = def.TaskStatusCheckPeriod
	}
	return cfg
}
