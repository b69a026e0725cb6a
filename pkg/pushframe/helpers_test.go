package pushframe

import (
	"bytes"
	"log"
	"os"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/abworrall/pushframe/pkg/ephem"
)

// spinningProvider models a spacecraft turning about a fixed axis at a
// constant rate; a zero rate holds it at `attitude`. Times for which
// `uncovered` returns true fail as out of coverage.
type spinningProvider struct {
	attitude  r3.Rotation
	axis      r3.Vec
	rate      float64 // rad/s
	uncovered func(et float64) bool
	err       error
}

func (sp spinningProvider) StateAt(et float64) (ephem.State, error) {
	if sp.err != nil {
		return ephem.State{}, sp.err
	}
	if sp.uncovered != nil && sp.uncovered(et) {
		return ephem.State{}, &ephem.TimeOutOfCoverageError{ET: et, Kind: ephem.CoverageOrientation}
	}

	q := r3.Rotation{Real: 1}
	if sp.attitude != (r3.Rotation{}) {
		q = sp.attitude
	}
	if sp.rate != 0 {
		spin := r3.NewRotation(sp.rate*et, sp.axis)
		q = r3.Rotation(quat.Mul(quat.Number(spin), quat.Number(q)))
	}

	return ephem.State{ET: et, Frame: "J2000", Orientation: q}, nil
}

func testGeometry() FrameGeometry {
	return FrameGeometry{
		BandHeight:        4,
		BandsPerFrame:     3,
		FrameTransferTime: 0.001,
		LineTime:          0.01,
		PixelScale:        1e-5,
	}
}

// interleavedRaw builds a raw image of numFrames frames, with pixel values
// coming from `value`.
func interleavedRaw(geom FrameGeometry, width, numFrames, bitDepth int, value func(f int, c Channel, x, y int) float64) *RawImage {
	raw := NewRawImage(width, numFrames*geom.FrameHeight(), bitDepth)
	for f := 0; f < numFrames; f++ {
		for _, c := range Channels {
			y0 := f*geom.FrameHeight() + geom.ChannelRowOffset(c)
			for y := 0; y < geom.BandHeight; y++ {
				for x := 0; x < width; x++ {
					raw.Pix.Set(x, y0+y, value(f, c, x, y))
				}
			}
		}
	}
	return raw
}

func constantPlanes(f int, c Channel, x, y int) float64 {
	return map[Channel]float64{Blue: 10, Green: 20, Red: 30}[c]
}

// captureLog collects everything logged during the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return buf
}
