package pushframe

import (
	"fmt"

	"github.com/abworrall/pushframe/pkg/emath"
)

// A Strip is one channel's band of rows from one frame of a raw image.
type Strip struct {
	Frame   int
	Channel Channel
	Grid    emath.FloatGrid
}

func (s Strip) String() string {
	return fmt.Sprintf("Strip[frame %d %s, %dx%d]", s.Frame, s.Channel, s.Grid.Dx(), s.Grid.Dy())
}

// Demux slices a raw image into per-frame, per-channel strips, ordered by
// frame and then by channel (Blue, Green, Red). The first and last frame
// of the sequence are left out, so an image of fewer than three frames
// yields no strips. If the image height isn't a whole number of frames it
// returns a ConfigurationError, and no strips.
func Demux(raw *RawImage, geom FrameGeometry) ([]Strip, error) {
	if geom.BandsPerFrame != BandsPerFrame {
		return nil, configErrorf("geometry.bandsperframe", "must be %d, got %d", BandsPerFrame, geom.BandsPerFrame)
	}
	numFrames, err := geom.NumFrames(raw.Dy())
	if err != nil {
		return nil, err
	}

	strips := []Strip{}
	if UsableFrames(numFrames) == 0 {
		return strips, nil
	}

	for f := 1; f < numFrames-1; f++ {
		for _, c := range Channels {
			y0 := f*geom.FrameHeight() + geom.ChannelRowOffset(c)

			grid := emath.NewFloatGrid(raw.Dx(), geom.BandHeight)
			for y := 0; y < geom.BandHeight; y++ {
				copy(grid.Row(y), raw.Pix.Row(y0+y))
			}

			strips = append(strips, Strip{Frame: f, Channel: c, Grid: grid})
		}
	}

	return strips, nil
}
