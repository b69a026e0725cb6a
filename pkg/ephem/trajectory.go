package ephem

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/r3"
)

// An spkSegment holds one trajectory kernel's state records, and
// interpolates position with cubic Hermite polynomials built from the
// recorded positions and velocities.
type spkSegment struct {
	path   string
	target int
	center int
	frame  string
	start  float64
	stop   float64
	axes   [3]*interp.PiecewiseCubic
}

func newSPKSegment(path string, k spkKernel) (*spkSegment, error) {
	if len(k.Records) < 2 {
		return nil, fmt.Errorf("need at least 2 records, got %d", len(k.Records))
	}
	if k.Frame == "" {
		return nil, fmt.Errorf("no frame named")
	}

	n := len(k.Records)
	ets := make([]float64, n)
	pos := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	vel := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}

	for i, rec := range k.Records {
		if i > 0 && rec.ET <= ets[i-1] {
			return nil, fmt.Errorf("record %d: et not strictly increasing", i)
		}
		p, err := vec3From(rec.Position, fmt.Sprintf("record %d position", i))
		if err != nil {
			return nil, err
		}
		v, err := vec3From(rec.Velocity, fmt.Sprintf("record %d velocity", i))
		if err != nil {
			return nil, err
		}
		ets[i] = rec.ET
		for a := 0; a < 3; a++ {
			pos[a][i] = p[a]
			vel[a][i] = v[a]
		}
	}

	seg := &spkSegment{
		path:   path,
		target: k.Target,
		center: k.Center,
		frame:  k.Frame,
		start:  ets[0],
		stop:   ets[n-1],
	}
	for a := 0; a < 3; a++ {
		seg.axes[a] = &interp.PiecewiseCubic{}
		seg.axes[a].FitWithDerivatives(ets, pos[a], vel[a])
	}

	return seg, nil
}

func (s *spkSegment) covers(et float64) bool { return et >= s.start && et <= s.stop }

// at returns position (km) and velocity (km/s) of the target relative to
// the center.
func (s *spkSegment) at(et float64) (r3.Vec, r3.Vec) {
	return r3.Vec{
			X: s.axes[0].Predict(et),
			Y: s.axes[1].Predict(et),
			Z: s.axes[2].Predict(et),
		}, r3.Vec{
			X: s.axes[0].PredictDerivative(et),
			Y: s.axes[1].PredictDerivative(et),
			Z: s.axes[2].PredictDerivative(et),
		}
}
