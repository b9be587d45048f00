package cli

import (
	"errors"
	"fmt"
	"testing"

	"carta-hq/titan/pkg/store"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("storage.path", "missing required field")

	want := "config error in storage.path: missing required field"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlying := errors.New("db locked")
	err := NewCommandError("run", underlying)

	want := "command run failed: db locked"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("storage.path", "empty"), ExitConfig},
		{"not found", store.ErrNotFound, ExitNotFound},
		{"conflict", store.ErrVersionConflict, ExitConflict},
		{"wrapped not found", NewCommandError("verify", fmt.Errorf("read: %w", store.ErrNotFound)), ExitNotFound},
		{"wrapped conflict", NewCommandError("import", store.ErrVersionConflict), ExitConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
