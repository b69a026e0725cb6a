package pushframe

import (
	"fmt"
	"math"

	"github.com/abworrall/pushframe/pkg/ephem"
)

// A Channel is one of the three filter strips in a frame. The value is the
// strip's position within the frame, so it also orders exposures in time.
type Channel int

const (
	Blue Channel = iota
	Green
	Red
)

// BandsPerFrame is the number of filter strips in each frame; one per
// Channel.
const BandsPerFrame = 3

// ReferenceChannel is the channel the other two get aligned to.
const ReferenceChannel = Green

// Channels lists every channel, in strip order.
var Channels = [BandsPerFrame]Channel{Blue, Green, Red}

func (c Channel) Valid() bool { return c >= Blue && c <= Red }

func (c Channel) String() string {
	switch c {
	case Blue:
		return "blue"
	case Green:
		return "green"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

/* Example geometry section of a config file, for JunoCam ...

geometry:
  bandheight: 128
  bandsperframe: 3
  frametransfertime: 0.001
  linetime: 0.0032
  pixelscale: 0.000673

*/

// FrameGeometry describes how a raw pushframe image is laid out, and when
// each row of it was exposed.
type FrameGeometry struct {
	BandHeight        int     // rows per channel strip
	BandsPerFrame     int     // must be 3
	FrameTransferTime float64 // seconds between channel exposures within a frame
	LineTime          float64 // seconds to read out one row
	PixelScale        float64 // radians per pixel
}

func NewFrameGeometry() FrameGeometry {
	return FrameGeometry{
		BandHeight:    128,
		BandsPerFrame: BandsPerFrame,
	}
}

func (g FrameGeometry) String() string {
	return fmt.Sprintf("Geometry[band %d rows x%d, xfer %gs, line %gs, %g rad/pix]",
		g.BandHeight, g.BandsPerFrame, g.FrameTransferTime, g.LineTime, g.PixelScale)
}

// Validate checks the geometry makes sense, returning a ConfigurationError
// if it doesn't.
func (g FrameGeometry) Validate() error {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

	switch {
	case g.BandHeight <= 0:
		return configErrorf("geometry.bandheight", "must be positive, got %d", g.BandHeight)
	case g.BandsPerFrame != BandsPerFrame:
		return configErrorf("geometry.bandsperframe", "must be %d, got %d", BandsPerFrame, g.BandsPerFrame)
	case bad(g.FrameTransferTime) || g.FrameTransferTime < 0:
		return configErrorf("geometry.frametransfertime", "must be a non-negative number of seconds, got %g", g.FrameTransferTime)
	case bad(g.LineTime) || g.LineTime < 0:
		return configErrorf("geometry.linetime", "must be a non-negative number of seconds, got %g", g.LineTime)
	case bad(g.PixelScale) || g.PixelScale <= 0:
		return configErrorf("geometry.pixelscale", "must be a positive number of radians per pixel, got %g", g.PixelScale)
	}

	return nil
}

// FillFromInstrument takes any timing or scale the config left as zero from
// the instrument kernel.
func (g FrameGeometry) FillFromInstrument(info ephem.InstrumentInfo) FrameGeometry {
	if g.PixelScale == 0 {
		g.PixelScale = info.PixelScale
	}
	if g.LineTime == 0 {
		g.LineTime = info.LineTime
	}
	if g.FrameTransferTime == 0 {
		g.FrameTransferTime = info.FrameTransferTime
	}
	return g
}

// FrameHeight is the number of raw rows in one frame.
func (g FrameGeometry) FrameHeight() int { return g.BandHeight * g.BandsPerFrame }

// ChannelRowOffset is the first row of channel c's strip, relative to the
// start of its frame.
func (g FrameGeometry) ChannelRowOffset(c Channel) int { return int(c) * g.BandHeight }

// NumFrames works out how many frames a raw image of `rows` rows holds.
func (g FrameGeometry) NumFrames(rows int) (int, error) {
	if g.BandHeight <= 0 || g.BandsPerFrame <= 0 {
		return 0, configErrorf("geometry", "band layout %dx%d is empty", g.BandHeight, g.BandsPerFrame)
	}
	if rows < 0 || rows%g.FrameHeight() != 0 {
		return 0, configErrorf("rows", "raw image has %d rows, not a multiple of %d (bandheight %d x %d bands)",
			rows, g.FrameHeight(), g.BandHeight, g.BandsPerFrame)
	}
	return rows / g.FrameHeight(), nil
}

// UsableFrames is how many frames survive into the mosaics; the first and
// last frame of the sequence are always dropped.
func UsableFrames(numFrames int) int {
	if numFrames < 3 {
		return 0
	}
	return numFrames - 2
}

// ExposureTime is the ephemeris time at which `row` of channel c's strip in
// frame f was read out, for an image whose capture started at `start`.
func (g FrameGeometry) ExposureTime(start float64, f int, c Channel, row int) float64 {
	frameTime := float64(f) * float64(g.BandsPerFrame) * g.LineTime * float64(g.BandHeight)
	return start + frameTime + float64(c)*g.FrameTransferTime + float64(row)*g.LineTime
}

// MidStripRow is the row whose exposure time stands for the whole strip.
func (g FrameGeometry) MidStripRow() int { return g.BandHeight / 2 }
