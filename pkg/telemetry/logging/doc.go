// Package logging provides the structured logger used across the store.
// It wraps log/slog with level and format configuration and extraction of
// request-scoped fields from context.
package logging
