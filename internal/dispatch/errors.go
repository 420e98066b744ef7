package dispatch

import (
	"errors"
	"fmt"
)

// ConfigError reports a request that cannot be dispatched as given.
type ConfigError struct {
	// Field is the request field at fault.
	Field string
	// Message is a human-readable description.
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
