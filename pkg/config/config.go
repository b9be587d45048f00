package config

import "time"

// Config is the top-level configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Cache       CacheConfig       `yaml:"cache"`
	Compression CompressionConfig `yaml:"compression"`
	Pools       PoolsConfig       `yaml:"pools"`
	Retention   RetentionConfig   `yaml:"retention"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Server      ServerConfig      `yaml:"server"`
}

// StorageConfig configures the SQLite backing store.
type StorageConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for locks before failing.
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often to checkpoint the WAL.
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// CacheConfig configures the cache tier.
type CacheConfig struct {
	// MaxEntries caps each namespace independently (0 = unlimited).
	MaxEntries int `yaml:"max_entries"`

	// TTLs are the per-namespace default TTLs. Unset namespaces use
	// built-in defaults.
	TTLs CacheTTLs `yaml:"ttls"`
}

// CacheTTLs carries the TTL classes for the six cache namespaces.
type CacheTTLs struct {
	Resources   time.Duration `yaml:"resources"`
	Searches    time.Duration `yaml:"searches"`
	Metadata    time.Duration `yaml:"metadata"`
	Counts      time.Duration `yaml:"counts"`
	Terminology time.Duration `yaml:"terminology"`
	Validation  time.Duration `yaml:"validation"`
}

// CompressionConfig configures the payload codec.
type CompressionConfig struct {
	// Threshold is the payload size in bytes above which payloads are
	// compressed (strictly greater-than).
	Threshold int `yaml:"threshold"`
}

// PoolConfig sizes one worker pool.
type PoolConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// PoolsConfig sizes the pools per workload class.
type PoolsConfig struct {
	// Interactive serves request-path work.
	Interactive PoolConfig `yaml:"interactive"`

	// History serves high-volume history writes.
	History PoolConfig `yaml:"history"`

	// Bulk serves batch import work.
	Bulk PoolConfig `yaml:"bulk"`

	// Audit serves fire-and-forget audit logging.
	Audit PoolConfig `yaml:"audit"`
}

// RetentionConfig configures the history retention sweeper.
type RetentionConfig struct {
	// Schedule is a cron expression for sweep runs.
	Schedule string `yaml:"schedule"`

	// MaxAge is how long history entries are kept. Zero disables sweeping.
	MaxAge time.Duration `yaml:"max_age"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus surface.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// ServerConfig configures the operational HTTP endpoint.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}
