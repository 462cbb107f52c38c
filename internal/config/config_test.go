package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
	if c.Tolerance != 0.001 {
		t.Errorf("default tolerance = %g, want 0.001", c.Tolerance)
	}
	if c.BenchReps <= 0 {
		t.Errorf("default bench reps = %d, want positive", c.BenchReps)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero tolerance", func(c *Config) { c.Tolerance = 0 }, "tolerance"},
		{"tolerance at one", func(c *Config) { c.Tolerance = 1 }, "tolerance"},
		{"negative tolerance", func(c *Config) { c.Tolerance = -0.5 }, "tolerance"},
		{"zero reps", func(c *Config) { c.BenchReps = 0 }, "repetitions"},
		{"negative warmup", func(c *Config) { c.BenchWarmup = -1 }, "warmup"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
		{"json format ok", func(c *Config) { c.LogFormat = "json" }, ""},
		{"uppercase format ok", func(c *Config) { c.LogFormat = "JSON" }, ""},
		{"zero warmup ok", func(c *Config) { c.BenchWarmup = 0 }, ""},
		{"quick ok", func(c *Config) { c.Quick = true }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q missing %q", err.Error(), tt.wantErr)
			}
		})
	}
}
