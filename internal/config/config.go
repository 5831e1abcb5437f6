// Package config loads server tuning from a YAML file, with environment
// variables supplying secrets and endpoints.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server tuning document.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	ArchiveDir string `yaml:"archive_dir"`

	Sim      SimTuning      `yaml:"sim"`
	Decision DecisionTuning `yaml:"decision"`
	Memory   MemoryTuning   `yaml:"memory"`
}

// SimTuning bounds the core simulation loop.
type SimTuning struct {
	TimelineRing    int     `yaml:"timeline_ring"`
	HistoryCap      int     `yaml:"history_cap"`
	ComboWindow     int64   `yaml:"combo_window_ticks"`
	StableWindow    int     `yaml:"stable_window_ticks"`
	EscalateWindow  int     `yaml:"escalate_window_ticks"`
	MaxTicks        int64   `yaml:"max_ticks"`
	OfficialDelay   int64   `yaml:"official_delay_ticks"`
	StartHour       int     `yaml:"start_hour"`
	MinutesPerTick  int     `yaml:"minutes_per_tick"`
	RandomEventProb float64 `yaml:"random_event_prob"`
}

// DecisionTuning bounds traffic to the external decision service.
type DecisionTuning struct {
	Endpoint      string `yaml:"endpoint"`
	Model         string `yaml:"model"`
	MaxInflight   int    `yaml:"max_inflight"`
	MinIntervalMs int    `yaml:"min_interval_ms"`
	BackoffBaseMs int    `yaml:"backoff_base_ms"`
	BackoffMaxMs  int    `yaml:"backoff_max_ms"`
	BatchSize     int    `yaml:"batch_size"`
}

// MemoryTuning configures the embedding/memory sidecar.
type MemoryTuning struct {
	Endpoint string `yaml:"endpoint"`
	TopK     int    `yaml:"top_k"`
}

// Default returns the tuning used when no file is present.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "townsim.db",
		ArchiveDir: "archives",
		Sim: SimTuning{
			TimelineRing:    256,
			HistoryCap:      64,
			ComboWindow:     8,
			StableWindow:    12,
			EscalateWindow:  12,
			MaxTicks:        720,
			OfficialDelay:   20,
			StartHour:       8,
			MinutesPerTick:  2,
			RandomEventProb: 0.03,
		},
		Decision: DecisionTuning{
			MaxInflight:   4,
			MinIntervalMs: 1500,
			BackoffBaseMs: 2000,
			BackoffMaxMs:  60000,
			BatchSize:     3,
		},
		Memory: MemoryTuning{TopK: 5},
	}
}

// Load reads tuning from path, falling back to defaults when the file does
// not exist. Environment variables override endpoints so secrets stay out of
// the file.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("tuning.yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if v := os.Getenv("DECISION_API_URL"); v != "" {
		cfg.Decision.Endpoint = v
	}
	if v := os.Getenv("MEMORY_SERVICE_URL"); v != "" {
		cfg.Memory.Endpoint = v
	}
	if v := os.Getenv("SIM_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	return cfg, nil
}
