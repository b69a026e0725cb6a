package emath

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A FloatGrid is a grid of floats, with some operations. It is the working
// representation of a single-channel plane (a strip, or a whole mosaic).
type FloatGrid struct {
	stride int
	rows   int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return FloatGrid{
		stride: w,
		rows:   h,
		values: make([]float64, w*h),
	}
}

func (g1 *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(g1.Dx(), g1.Dy()) }
func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Dy() int                 { return fg.rows }
func (fg *FloatGrid) Empty() bool             { return len(fg.values) == 0 }

// Row returns the backing slice for row y; writes go straight into the grid.
func (fg *FloatGrid) Row(y int) []float64 { return fg.values[fg.stride*y : fg.stride*(y+1)] }

func (g1 *FloatGrid) Copy() *FloatGrid {
	g2 := FloatGrid{stride: g1.stride, rows: g1.rows, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// PasteRows copies all of `src` into this grid, with src row 0 landing on
// row `y0`. The widths must match. Callers pasting into disjoint row ranges
// may do so from different goroutines.
func (fg *FloatGrid) PasteRows(src FloatGrid, y0 int) error {
	if src.Dx() != fg.Dx() {
		return fmt.Errorf("paste: width %d into grid of width %d", src.Dx(), fg.Dx())
	}
	if y0 < 0 || y0+src.Dy() > fg.Dy() {
		return fmt.Errorf("paste: rows [%d,%d) outside grid of height %d", y0, y0+src.Dy(), fg.Dy())
	}
	copy(fg.values[fg.stride*y0:fg.stride*(y0+src.Dy())], src.values)
	return nil
}

// SampleBilinear returns the value at the fractional location (x,y),
// interpolating between the four surrounding pixels. Locations outside the
// grid are clamped to the nearest edge pixel.
func (fg *FloatGrid) SampleBilinear(x, y float64) float64 {
	w, h := fg.Dx(), fg.Dy()

	fx0, fy0 := math.Floor(x), math.Floor(y)
	tx, ty := x-fx0, y-fy0

	x0 := ClampInt(int(fx0), 0, w-1)
	x1 := ClampInt(int(fx0)+1, 0, w-1)
	y0 := ClampInt(int(fy0), 0, h-1)
	y1 := ClampInt(int(fy0)+1, 0, h-1)

	// An exact hit skips the neighbours entirely, so an identity transform
	// reproduces its input bit-for-bit.
	if tx == 0 && ty == 0 {
		return fg.Get(x0, y0)
	}

	top := (1-tx)*fg.Get(x0, y0) + tx*fg.Get(x1, y0)
	bot := (1-tx)*fg.Get(x0, y1) + tx*fg.Get(x1, y1)
	return (1-ty)*top + ty*bot
}

// Transform builds a new grid where each pixel is sampled from this grid at
// the location given by `dstToSrc`.
func (fg *FloatGrid) Transform(dstToSrc Aff3) FloatGrid {
	if fg.Empty() || dstToSrc.IsIdentity() {
		return *fg.Copy()
	}

	out := fg.NewFromThis()
	for y := 0; y < out.Dy(); y++ {
		row := out.Row(y)
		for x := range row {
			sx, sy := dstToSrc.Apply(float64(x), float64(y))
			row[x] = fg.SampleBilinear(sx, sy)
		}
	}
	return out
}

// Translate moves the grid's contents by (dx,dy) pixels: the output pixel at
// (x+dx, y+dy) takes the value the input had at (x,y).
func (fg *FloatGrid) Translate(dx, dy float64) FloatGrid {
	fwd := Identity().Translate(dx, dy)
	inv, err := fwd.Invert()
	if err != nil {
		// A pure translation always has an inverse
		panic(err)
	}
	return fg.Transform(inv)
}

func (fg *FloatGrid) MinMax() (float64, float64) {
	if fg.Empty() {
		return 0, 0
	}
	min, max := fg.values[0], fg.values[0]
	for _, v := range fg.values {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return min, max
}

func (fg *FloatGrid) Mean() float64 {
	if fg.Empty() {
		return 0
	}
	tot := 0.0
	for _, v := range fg.values {
		tot += v
	}
	return tot / float64(len(fg.values))
}

func (fg *FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the grid, and gamma scaling the
// gray to look normal for human vision
func (fg *FloatGrid) ToImg(title, filename string) error {
	if fg.Empty() {
		return fmt.Errorf("ToImg '%s': empty grid", filename)
	}
	min, max := fg.MinMax()
	span := max - min
	if span == 0 {
		span = 1
	}

	img := image.NewRGBA64(image.Rectangle{Max: image.Point{fg.Dx(), fg.Dy()}})
	for x := 0; x < fg.Dx(); x++ {
		for y := 0; y < fg.Dy(); y++ {
			gray := GammaExpand_F64((fg.Get(x, y) - min) / span)
			g16 := uint16(gray * 65535.0)
			img.Set(x, y, color.RGBA64{g16, g16, g16, 0xFFFF})
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 50, 50)
	return dc.SavePNG(filename)
}
