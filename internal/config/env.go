package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FLO_* environment variables onto cfg. Unparsable values
// are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FLO_DEFAULT_NAMESPACE_NAME"); v != "" {
		cfg.DefaultNamespaceName = v
	}
	if v := os.Getenv("FLO_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("FLO_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FLO_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	envInt("FLO_FSYNC_INTERVAL_MS", &cfg.FsyncIntervalMs)
	envInt("FLO_TRANSFORM_PARTITIONS", &cfg.Transform.Partitions)
	envInt("FLO_TRANSFORM_MEMORY_LIMIT_BYTES", &cfg.Transform.MemoryLimitBytes)
	envInt("FLO_TRANSFORM_MAX_BATCH", &cfg.Transform.MaxBatch)
	envInt("FLO_TRANSFORM_POLL_MS", &cfg.Transform.PollIntervalMs)
	if v := os.Getenv("FLO_TRANSFORM_RESUME"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Transform.Resume = b
		}
	}
	if v := os.Getenv("FLO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FLO_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
