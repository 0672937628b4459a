package config

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid configuration key after all
// sources have been merged. It is fatal and surfaced at startup.
type ConfigError struct {
	Key     string
	Message string
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Message)
}

// NewConfigError creates a ConfigError for a key.
func NewConfigError(key, format string, args ...any) *ConfigError {
	return &ConfigError{
		Key:     key,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
