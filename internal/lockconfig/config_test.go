package lockconfig

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := Config{
		LockTimeout:           90 * time.Second,
		MaxNumBatchTasks:      50,
		MaxRetry:              5,
		TaskStatusCheckPeriod: 30 * time.Second,
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Config
	if err := yaml.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != cfg {
		t.Fatalf("round-tripped Config = %+v, want %+v", got, cfg)
	}
}

func TestConfigWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{MaxRetry: 9}
	filled := cfg.WithDefaults()

	want := DefaultConfig()
	want.MaxRetry = 9

	if filled != want {
		t.Fatalf("WithDefaults() = %+v, want %+v", filled, want)
	}
}

func TestConfigWithDefaultsPreservesNonZeroFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockTimeout = time.Minute
	filled := cfg.WithDefaults()
	if filled.LockTimeout != time.Minute {
		t.Fatalf("WithDefaults() overwrote an already-set LockTimeout: got %v", filled.LockTimeout)
	}
}
