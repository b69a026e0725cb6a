package ephem

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// A ckSegment holds one orientation kernel's attitude records. Between
// records the attitude is spherically interpolated.
type ckSegment struct {
	path      string
	frame     string
	reference string
	ets       []float64
	quats     []quat.Number
}

func newCKSegment(path string, k ckKernel) (*ckSegment, error) {
	if len(k.Records) < 2 {
		return nil, fmt.Errorf("need at least 2 records, got %d", len(k.Records))
	}
	if k.Frame == "" || k.Reference == "" {
		return nil, fmt.Errorf("frame and reference must both be named")
	}

	seg := &ckSegment{path: path, frame: k.Frame, reference: k.Reference}
	for i, rec := range k.Records {
		if i > 0 && rec.ET <= seg.ets[i-1] {
			return nil, fmt.Errorf("record %d: et not strictly increasing", i)
		}
		q, err := quatFrom(rec.Quaternion)
		if err != nil {
			return nil, fmt.Errorf("record %d: %v", i, err)
		}
		seg.ets = append(seg.ets, rec.ET)
		seg.quats = append(seg.quats, q)
	}

	return seg, nil
}

func (s *ckSegment) start() float64        { return s.ets[0] }
func (s *ckSegment) stop() float64         { return s.ets[len(s.ets)-1] }
func (s *ckSegment) covers(et float64) bool { return et >= s.start() && et <= s.stop() }

// at returns the rotation taking vectors in s.frame into s.reference.
func (s *ckSegment) at(et float64) quat.Number {
	i := sort.Search(len(s.ets), func(i int) bool { return s.ets[i] > et }) - 1
	if i >= len(s.ets)-1 {
		return s.quats[len(s.quats)-1]
	}
	if i < 0 {
		return s.quats[0]
	}
	t := (et - s.ets[i]) / (s.ets[i+1] - s.ets[i])
	return slerp(s.quats[i], s.quats[i+1], t)
}

// quatFrom builds a unit quaternion from [w, x, y, z].
func quatFrom(vals []float64) (quat.Number, error) {
	if len(vals) != 4 {
		return quat.Number{}, fmt.Errorf("quaternion: want 4 values [w,x,y,z], got %d", len(vals))
	}
	q := quat.Number{Real: vals[0], Imag: vals[1], Jmag: vals[2], Kmag: vals[3]}
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return quat.Number{}, fmt.Errorf("quaternion %v has no direction", vals)
	}
	return quat.Scale(1/n, q), nil
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// slerp interpolates along the shorter arc between two unit quaternions.
func slerp(q0, q1 quat.Number, t float64) quat.Number {
	if t <= 0 {
		return q0
	}
	if t >= 1 {
		return q1
	}

	dot := quatDot(q0, q1)
	if dot < 0 {
		q1 = quat.Scale(-1, q1)
		dot = -dot
	}

	var q quat.Number
	if dot > 0.9995 {
		// Nearly parallel; a normalised lerp is accurate and avoids dividing by sin(~0)
		q = quat.Add(quat.Scale(1-t, q0), quat.Scale(t, q1))
	} else {
		theta := math.Acos(dot)
		sinTheta := math.Sin(theta)
		q = quat.Add(
			quat.Scale(math.Sin((1-t)*theta)/sinTheta, q0),
			quat.Scale(math.Sin(t*theta)/sinTheta, q1))
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// A frameDef is a fixed frame from the frames kernel: `Rotation` takes
// vectors in this frame into the RelativeTo frame.
type frameDef struct {
	ID         int
	RelativeTo string
	Rotation   []float64
}

// chainRotation walks the fixed-frame definitions from `from` up to `to`,
// composing the rotations along the way.
func chainRotation(frames map[string]frameDef, from, to string) (quat.Number, error) {
	q := quat.Number{Real: 1}
	seen := map[string]bool{}

	for name := from; name != to; {
		if seen[name] {
			return q, fmt.Errorf("frame chain from %s loops at %s", from, name)
		}
		seen[name] = true

		def, exists := frames[name]
		if !exists {
			return q, fmt.Errorf("frame %s is not defined, and does not lead to %s", name, to)
		}

		r := quat.Number{Real: 1}
		if len(def.Rotation) > 0 {
			var err error
			if r, err = quatFrom(def.Rotation); err != nil {
				return q, fmt.Errorf("frame %s: %v", name, err)
			}
		}
		q = quat.Mul(r, q)
		name = def.RelativeTo
		if name == "" {
			return q, fmt.Errorf("frame chain from %s ends before reaching %s", from, to)
		}
	}

	return q, nil
}

// Rotation helpers; r3.Rotation is a quat.Number underneath.

func toRotation(q quat.Number) r3.Rotation { return r3.Rotation(q) }

// RelativeRotation returns the rotation that takes a vector as seen in
// orientation `from`'s body frame, to how it is seen in `to`'s body frame.
// Both orientations must map body vectors into the same inertial frame.
func RelativeRotation(from, to r3.Rotation) r3.Rotation {
	return r3.Rotation(quat.Mul(quat.Conj(quat.Number(to)), quat.Number(from)))
}
