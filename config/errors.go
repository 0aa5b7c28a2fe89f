// Package config handles run configuration: action inputs, repository
// configuration files and reviewer personas.
package config

import "fmt"

// ConfigurationError indicates invalid or missing configuration. It is
// always detected before any network call is made.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
