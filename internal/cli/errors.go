package cli

import (
	"errors"
	"fmt"
)

// Exit codes
const (
	ExitOK        = 0
	ExitFatal     = 1
	ExitConfig    = 2
	ExitCancelled = 130
)

var (
	// ErrConfig marks configuration errors, reported before any network call
	ErrConfig = errors.New("configuration error")

	// ErrCancelled is returned when the user stops a one-shot run
	ErrCancelled = errors.New("cancelled")
)

func configError(err error) error {
	if err == nil || errors.Is(err, ErrConfig) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfig, err)
}

// ExitCode maps an error returned by Execute to a process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfig):
		return ExitConfig
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	default:
		return ExitFatal
	}
}
