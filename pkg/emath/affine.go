package emath

// Affine transformations, used to shift channel strips by sub-pixel amounts

import (
	"fmt"

	"golang.org/x/image/math/f64"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0, 0, 1, 0}
}

func (m1 Aff3) Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

// Invert returns the inverse transform. The resampler needs this to go
// from a destination pixel back to the source location it samples.
func (m Aff3) Invert() (Aff3, error) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return Aff3{}, fmt.Errorf("affine transform %v is singular", m)
	}

	a := m[4] / det
	b := -m[1] / det
	d := -m[3] / det
	e := m[0] / det

	return Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}, nil
}

// Apply maps the point (x,y) through the transform.
func (m Aff3) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

func (m Aff3) IsIdentity() bool {
	return m == Identity()
}

func (m Aff3) String() string {
	return fmt.Sprintf("[%8.4f %8.4f %8.4f | %8.4f %8.4f %8.4f]", m[0], m[1], m[2], m[3], m[4], m[5])
}
