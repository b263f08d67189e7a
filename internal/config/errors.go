package config

import (
	"errors"
	"fmt"
)

// Configuration errors. All of them are fatal for a run.
var (
	// ErrUnknownModel indicates a requested model name that is not registered.
	ErrUnknownModel = errors.New("config: unknown model name")

	// ErrMissingKey indicates a required key absent from the table.
	ErrMissingKey = errors.New("config: missing required key")

	// ErrInvalidValue indicates a value that does not parse as its key's type.
	ErrInvalidValue = errors.New("config: invalid value")

	// ErrInvalidBounds indicates an axis whose minimum is not below its maximum.
	ErrInvalidBounds = errors.New("config: invalid axis bounds")
)

// ConfigError wraps a configuration failure with the file and key involved.
//
//nolint:revive // config.ConfigError reads better at call sites than config.Error
type ConfigError struct {
	Path    string // Table the value came from (may be empty)
	Key     string // Offending key
	Value   string // Raw value, if any
	Wrapped error
}

func (e *ConfigError) Error() string {
	where := e.Key
	if e.Path != "" {
		where = fmt.Sprintf("%s: %s", e.Path, e.Key)
	}
	if e.Value != "" {
		return fmt.Sprintf("%s = %q: %v", where, e.Value, e.Wrapped)
	}
	return fmt.Sprintf("%s: %v", where, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}
