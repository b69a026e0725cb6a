package pushframe

import (
	"fmt"
	"log"
	"math"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	"github.com/skypies/util/histogram"

	"github.com/abworrall/pushframe/pkg/emath"
)

// LogShiftHistogram logs, per channel, how the shift magnitudes are
// distributed, in tenths of a pixel.
func LogShiftHistogram(st ShiftTable) {
	for _, c := range Channels {
		if c == ReferenceChannel {
			continue
		}
		h := histogram.Histogram{NumBuckets: 50, ValMin: 0, ValMax: 50}
		maxMag := 0.0
		for _, f := range st.Frames() {
			mag := st.Get(f, c).Magnitude()
			maxMag = math.Max(maxMag, mag)
			h.Add(histogram.ScalarVal(int(mag * 10)))
		}
		log.Printf("|shift| for %s, in 0.1px (max %.2fpx): %v\n", c, maxMag, h)
	}
}

// ShiftMapImage plots each frame's shifts: DX and DY for the Blue and Red
// channels, one column per frame. Frames with coverage gaps are marked.
func ShiftMapImage(st ShiftTable, gaps []CoverageGap, filename string) error {
	frames := st.Frames()
	if len(frames) == 0 {
		return fmt.Errorf("ShiftMapImage '%s': empty shift table", filename)
	}

	w, h := 800.0, 400.0
	margin := 40.0
	maxMag := 0.5
	for _, f := range frames {
		for _, c := range Channels {
			s := st.Get(f, c)
			maxMag = math.Max(maxMag, math.Max(math.Abs(s.DX), math.Abs(s.DY)))
		}
	}

	xOf := func(i int) float64 {
		if len(frames) == 1 {
			return w / 2
		}
		return margin + float64(i)*(w-2*margin)/float64(len(frames)-1)
	}
	yOf := func(v float64) float64 { return h/2 - v*(h/2-margin)/maxMag }

	dc := gg.NewContext(int(w), int(h))
	dc.SetRGB(0, 0, 0)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.DrawLine(margin, h/2, w-margin, h/2)
	dc.Stroke()

	series := []struct {
		c       Channel
		r, g, b float64
		val     func(PixelShift) float64
	}{
		{Blue, 0.3, 0.5, 1, func(s PixelShift) float64 { return s.DX }},
		{Blue, 0.1, 0.2, 0.6, func(s PixelShift) float64 { return s.DY }},
		{Red, 1, 0.4, 0.3, func(s PixelShift) float64 { return s.DX }},
		{Red, 0.6, 0.15, 0.1, func(s PixelShift) float64 { return s.DY }},
	}
	dc.SetLineWidth(2)
	for _, s := range series {
		dc.SetRGB(s.r, s.g, s.b)
		for i := 1; i < len(frames); i++ {
			dc.DrawLine(xOf(i-1), yOf(s.val(st.Get(frames[i-1], s.c))), xOf(i), yOf(s.val(st.Get(frames[i], s.c))))
		}
		dc.Stroke()
	}

	index := map[int]int{}
	for i, f := range frames {
		index[f] = i
	}
	dc.SetRGB(1, 1, 0)
	for _, gap := range gaps {
		if i, exists := index[gap.Frame]; exists {
			dc.DrawCircle(xOf(i), h-margin/2, 3)
			dc.Fill()
		}
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(fmt.Sprintf("shift per frame, +/-%.2fpx; blue/red DX bright, DY dark; %d gaps", maxMag, len(gaps)), margin, margin/2)
	return dc.SavePNG(filename)
}

// Pixels too dark or too bright to compare, as a fraction of full scale
const (
	residualTooLow  = 0.02
	residualTooHigh = 0.98
)

// ChannelResidual compares a channel mosaic against the reference mosaic,
// and returns an error metric; the less similar, the higher. Each plane is
// divided by its own mean first, since filters differ in throughput. Pixels
// that are too dim or too bright in either plane are ignored. If `debugFile`
// is set, the per-pixel difference is saved there.
func ChannelResidual(ref, ch emath.FloatGrid, fullScale float64, debugFile string) float64 {
	if ref.Empty() || ref.Dx() != ch.Dx() || ref.Dy() != ch.Dy() {
		return 0
	}

	meanRef, meanCh := ref.Mean(), ch.Mean()
	if meanRef == 0 || meanCh == 0 {
		return 0
	}

	tooLow, tooHigh := residualTooLow*fullScale, residualTooHigh*fullScale
	diff := ref.NewFromThis()
	totErr, nErr := 0.0, 0

	for y := 0; y < ref.Dy(); y++ {
		for x := 0; x < ref.Dx(); x++ {
			v1, v2 := ref.Get(x, y), ch.Get(x, y)
			if v1 < tooLow || v2 < tooLow || v1 > tooHigh || v2 > tooHigh {
				continue
			}
			pixErr := math.Abs(v1/meanRef - v2/meanCh)
			diff.Set(x, y, pixErr)
			totErr += pixErr
			nErr++
		}
	}
	if nErr == 0 {
		return 0
	}

	errMetric := totErr * 1000.0 / float64(nErr)

	if debugFile != "" {
		title := fmt.Sprintf("%.1f%% comparable; err=%.2f", 100.0*float64(nErr)/float64(ref.Dx()*ref.Dy()), errMetric)
		if err := diff.ToImg(title, debugFile); err != nil {
			log.Printf("residual image: %v\n", err)
		}
	}

	return errMetric
}
