package ephem

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderActive is returned by Load while another Provider still holds
	// its kernels; only one kernel pool may be live at a time.
	ErrProviderActive = errors.New("ephem: another provider is already loaded")

	// ErrUnloaded is returned by queries made after Unload.
	ErrUnloaded = errors.New("ephem: provider has been unloaded")
)

// A KernelNotFoundError means a required kernel category had no file
// configured, or the configured file does not exist.
type KernelNotFoundError struct {
	Category Category
	Path     string
}

func (e *KernelNotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("kernel not found: no %s kernel configured", e.Category)
	}
	return fmt.Sprintf("kernel not found: %s kernel '%s'", e.Category, e.Path)
}

// A KernelLoadError means a kernel file exists but could not be read or
// did not make sense.
type KernelLoadError struct {
	Category Category
	Path     string
	Err      error
}

func (e *KernelLoadError) Error() string {
	return fmt.Sprintf("kernel load: %s kernel '%s': %v", e.Category, e.Path, e.Err)
}

func (e *KernelLoadError) Unwrap() error { return e.Err }

// Which kind of data was missing when a query fell outside coverage.
type CoverageKind string

const (
	CoverageTrajectory  CoverageKind = "trajectory"
	CoverageOrientation CoverageKind = "orientation"
	CoverageClock       CoverageKind = "clock"
)

// A TimeOutOfCoverageError is returned when no loaded kernel has data for
// the requested ephemeris time. It is recoverable: callers may carry on
// with other times.
type TimeOutOfCoverageError struct {
	ET   float64 // for CoverageClock, the raw tick count
	Kind CoverageKind
}

func (e *TimeOutOfCoverageError) Error() string {
	return fmt.Sprintf("ET %.6f is outside loaded %s coverage", e.ET, e.Kind)
}

// IsOutOfCoverage reports whether err (or anything it wraps) is a
// TimeOutOfCoverageError.
func IsOutOfCoverage(err error) bool {
	var oc *TimeOutOfCoverageError
	return errors.As(err, &oc)
}
