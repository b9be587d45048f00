package config

import "time"

// ApplyDefaults fills unset fields with production defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "titan.db"
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = 5 * time.Second
	}
	if cfg.Storage.CheckpointInterval == 0 {
		cfg.Storage.CheckpointInterval = 5 * time.Minute
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
	if cfg.Cache.TTLs.Resources == 0 {
		cfg.Cache.TTLs.Resources = 5 * time.Minute
	}
	if cfg.Cache.TTLs.Searches == 0 {
		cfg.Cache.TTLs.Searches = 30 * time.Second
	}
	if cfg.Cache.TTLs.Metadata == 0 {
		cfg.Cache.TTLs.Metadata = time.Hour
	}
	if cfg.Cache.TTLs.Counts == 0 {
		cfg.Cache.TTLs.Counts = 2 * time.Minute
	}
	if cfg.Cache.TTLs.Terminology == 0 {
		cfg.Cache.TTLs.Terminology = time.Hour
	}
	if cfg.Cache.TTLs.Validation == 0 {
		cfg.Cache.TTLs.Validation = 10 * time.Minute
	}

	if cfg.Compression.Threshold == 0 {
		cfg.Compression.Threshold = 10000
	}

	applyPoolDefaults(&cfg.Pools.Interactive, 8, 512)
	applyPoolDefaults(&cfg.Pools.History, 4, 2048)
	applyPoolDefaults(&cfg.Pools.Bulk, 2, 4096)
	applyPoolDefaults(&cfg.Pools.Audit, 2, 1024)

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Schedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "titan"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "store"
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":9464"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
}

func applyPoolDefaults(p *PoolConfig, workers, queueSize int) {
	if p.Workers == 0 {
		p.Workers = workers
	}
	if p.QueueSize == 0 {
		p.QueueSize = queueSize
	}
}
