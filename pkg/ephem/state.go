package ephem

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// A State is a snapshot of where the spacecraft is and which way the
// instrument points, at one ephemeris time. It is computed fresh for every
// query.
type State struct {
	ET float64

	Position r3.Vec // km, relative to Center, in Frame
	Velocity r3.Vec // km/s; not used for channel offsets, kept for reprojection work
	Center   int    // NAIF id of the body the trajectory is relative to
	Frame    string // inertial frame of Position, Velocity and Orientation

	// Orientation takes vectors in the instrument frame into Frame.
	Orientation r3.Rotation
}

// Pointing returns where the instrument-frame vector `v` (e.g. the
// boresight) points, in the inertial frame.
func (s State) Pointing(v r3.Vec) r3.Vec {
	return s.Orientation.Rotate(v)
}

func (s State) String() string {
	return fmt.Sprintf("State[ET %.6f, pos(%.1f,%.1f,%.1f)km rel %d in %s]",
		s.ET, s.Position.X, s.Position.Y, s.Position.Z, s.Center, s.Frame)
}

// A Body comes from the planetary constants kernel.
type Body struct {
	Name  string `yaml:"-"`
	ID    int
	Radii []float64 // km, [a, b, c]
}

// InstrumentInfo comes from the instrument kernel.
type InstrumentInfo struct {
	Name              string
	ID                int
	Frame             string
	Boresight         r3.Vec  // unit vector, instrument frame
	PixelScale        float64 // radians per pixel
	LineTime          float64 // seconds per row, 0 if the kernel doesn't say
	FrameTransferTime float64 // seconds, 0 if the kernel doesn't say
}

// A Window is a span of ephemeris time covered by one kernel.
type Window struct {
	Category Category
	Path     string
	Start    float64
	Stop     float64
}

func (w Window) Contains(et float64) bool { return et >= w.Start && et <= w.Stop }
