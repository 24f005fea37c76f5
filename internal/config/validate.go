package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.Parallelism < 1 {
		errs = append(errs, &ValidationError{
			Field:   "parallelism",
			Value:   cfg.Parallelism,
			Message: "must be at least 1",
		})
	}

	if d, err := time.ParseDuration(cfg.Timeout); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "timeout",
			Value:   cfg.Timeout,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	} else if d <= 0 {
		errs = append(errs, &ValidationError{
			Field:   "timeout",
			Value:   cfg.Timeout,
			Message: "must be positive",
		})
	}

	if cfg.ScanDepth < 1 {
		errs = append(errs, &ValidationError{
			Field:   "scan_depth",
			Value:   cfg.ScanDepth,
			Message: "must be at least 1",
		})
	}

	// A branch without a remote is ambiguous; git needs both.
	if cfg.Branch != "" && cfg.Remote == "" {
		errs = append(errs, &ValidationError{
			Field:   "branch",
			Value:   cfg.Branch,
			Message: "requires remote to be set",
		})
	}

	if cfg.Language == "" {
		errs = append(errs, &ValidationError{
			Field:   "language",
			Value:   cfg.Language,
			Message: "must not be empty",
		})
	}

	if cfg.History.Path == "" {
		errs = append(errs, &ValidationError{
			Field:   "history.path",
			Value:   cfg.History.Path,
			Message: "must not be empty",
		})
	}

	if cfg.MaxOutputBytes < 1024 {
		errs = append(errs, &ValidationError{
			Field:   "max_output_bytes",
			Value:   cfg.MaxOutputBytes,
			Message: "must be at least 1024",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
