package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	logpkg "github.com/rzbill/flo-transform/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DefaultNamespaceName string            `json:"defaultNamespaceName"`
	GRPCAddr             string            `json:"grpcAddr"`
	HTTPAddr             string            `json:"httpAddr"`
	Fsync                string            `json:"fsync"` // always|interval|never
	FsyncIntervalMs      int               `json:"fsyncIntervalMs"`
	Transform            TransformDefaults `json:"transform"`
	Log                  logpkg.Config     `json:"log"`
}

// TransformDefaults captures the baseline applied to transforms that do not
// set their own limits.
type TransformDefaults struct {
	Partitions       int `json:"partitions"`
	MemoryLimitBytes int `json:"memoryLimitBytes"`
	MaxBatch         int `json:"maxBatch"`
	PollIntervalMs   int `json:"pollIntervalMs"`
	// Resume starts every registered transform when the server boots.
	Resume bool `json:"resume"`
}

// PollInterval returns PollIntervalMs as a duration.
func (t TransformDefaults) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultNamespaceName: "default",
		GRPCAddr:             ":50051",
		HTTPAddr:             ":8080",
		Fsync:                "always",
		FsyncIntervalMs:      5,
		Transform: TransformDefaults{
			Partitions:       1,
			MemoryLimitBytes: 2 << 20,
			MaxBatch:         256,
			PollIntervalMs:   200,
			Resume:           true,
		},
		Log: logpkg.Config{Level: "info", Format: "text"},
	}
}

// Validate reports the first out-of-range setting.
func (c Config) Validate() error {
	switch {
	case c.DefaultNamespaceName == "":
		return errors.New("config: defaultNamespaceName is required")
	case c.Transform.Partitions < 1:
		return fmt.Errorf("config: transform.partitions must be >= 1, got %d", c.Transform.Partitions)
	case c.Transform.MemoryLimitBytes < 0:
		return fmt.Errorf("config: transform.memoryLimitBytes must be >= 0, got %d", c.Transform.MemoryLimitBytes)
	case c.Transform.MaxBatch < 1:
		return fmt.Errorf("config: transform.maxBatch must be >= 1, got %d", c.Transform.MaxBatch)
	case c.Transform.PollIntervalMs < 1:
		return fmt.Errorf("config: transform.pollIntervalMs must be >= 1, got %d", c.Transform.PollIntervalMs)
	case c.FsyncIntervalMs < 0:
		return fmt.Errorf("config: fsyncIntervalMs must be >= 0, got %d", c.FsyncIntervalMs)
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("config: fsync must be always|interval|never, got %q", c.Fsync)
	}
	return nil
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported; use JSON")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, cfg.Validate()
}
