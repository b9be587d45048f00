package config

import (
	"fmt"
)

// Validate checks the configuration for values that would misbehave at
// runtime.
func Validate(cfg *Config) error {
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty")
	}
	if cfg.Storage.BusyTimeout < 0 {
		return fmt.Errorf("storage.busy_timeout cannot be negative")
	}

	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries cannot be negative")
	}
	for name, ttl := range map[string]int64{
		"resources":   int64(cfg.Cache.TTLs.Resources),
		"searches":    int64(cfg.Cache.TTLs.Searches),
		"metadata":    int64(cfg.Cache.TTLs.Metadata),
		"counts":      int64(cfg.Cache.TTLs.Counts),
		"terminology": int64(cfg.Cache.TTLs.Terminology),
		"validation":  int64(cfg.Cache.TTLs.Validation),
	} {
		if ttl < 0 {
			return fmt.Errorf("cache.ttls.%s cannot be negative", name)
		}
	}

	if cfg.Compression.Threshold < 0 {
		return fmt.Errorf("compression.threshold cannot be negative")
	}

	for name, p := range map[string]PoolConfig{
		"interactive": cfg.Pools.Interactive,
		"history":     cfg.Pools.History,
		"bulk":        cfg.Pools.Bulk,
		"audit":       cfg.Pools.Audit,
	} {
		if p.Workers < 1 {
			return fmt.Errorf("pools.%s.workers must be at least 1", name)
		}
		if p.QueueSize < 1 {
			return fmt.Errorf("pools.%s.queue_size must be at least 1", name)
		}
	}

	if cfg.Retention.MaxAge < 0 {
		return fmt.Errorf("retention.max_age cannot be negative")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error")
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text")
	}

	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}

	return nil
}
