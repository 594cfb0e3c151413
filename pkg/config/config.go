// Package config loads the enumerated set of control-plane options from a
// YAML file, with flag overrides applied on top.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoopPeriods carries the tick cadence for each background loop.
type LoopPeriods struct {
	Queue   time.Duration `yaml:"queue"`
	Health  time.Duration `yaml:"health"`
	Cleanup time.Duration `yaml:"cleanup"`
}

// Config is the enumerated set of recognized configuration options from
// spec.md §6.
type Config struct {
	TargetPoolSize      int           `yaml:"target_pool_size"`
	CPUCoresLimit       float64       `yaml:"cpu_cores_limit"`
	MemoryBytesLimit    int64         `yaml:"memory_bytes_limit"`
	MemThresholdPct     float64       `yaml:"mem_threshold_pct"`
	CPUThresholdPct     float64       `yaml:"cpu_threshold_pct"`
	Domain              string        `yaml:"domain"`
	RegionDefault       string        `yaml:"region_default"`
	CredentialsDefault  string        `yaml:"credentials_default"`
	LoopPeriods         LoopPeriods   `yaml:"loop_periods"`
	MaxConsecutiveFails int           `yaml:"max_consecutive_failures"`
	ReadinessWaitCap    time.Duration `yaml:"readiness_wait_cap"`

	DataDir          string `yaml:"data_dir"`
	ListenAddr       string `yaml:"listen_addr"`
	ContainerdSocket string `yaml:"containerd_socket"`
	WorkspaceImage   string `yaml:"workspace_image"`
	ProcPath         string `yaml:"proc_path"`
	DiskPath         string `yaml:"disk_path"`
}

// Default returns the configuration with every spec.md default applied.
func Default() Config {
	return Config{
		TargetPoolSize:      2,
		CPUCoresLimit:       2,
		MemoryBytesLimit:    4 << 30,
		MemThresholdPct:     90,
		CPUThresholdPct:     90,
		Domain:              "localhost",
		RegionDefault:       "us-east-1",
		LoopPeriods: LoopPeriods{
			Queue:   30 * time.Second,
			Health:  5 * time.Second,
			Cleanup: 60 * time.Second,
		},
		MaxConsecutiveFails: 3,
		ReadinessWaitCap:    120 * time.Second,
		DataDir:             "./data",
		ListenAddr:          ":8090",
		ContainerdSocket:    "/run/containerd/containerd.sock",
		WorkspaceImage:      "cuemby/cradle-workspace:latest",
		ProcPath:            "/proc",
		DiskPath:            "/",
	}
}

// Load reads path (if non-empty) as YAML over the defaults. A missing path
// is not an error: callers run entirely off defaults and flag overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
