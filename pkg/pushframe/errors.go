package pushframe

import "fmt"

// A ConfigurationError means the run was set up wrong: bad geometry, a raw
// image whose height doesn't fit the band layout, an unknown option. It is
// always fatal, and is raised before any processing happens.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
