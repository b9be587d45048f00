// Package config loads, defaults, and validates the YAML configuration
// for the resource store: storage engine settings, per-namespace cache
// TTLs, compression threshold, worker pool sizes, history retention, and
// the telemetry and server surfaces.
//
// Loading order is file, then defaults, then CARTA_* environment variable
// overrides, then validation. A watcher can re-load the file on change for
// the settings that are safe to apply at runtime.
package config
