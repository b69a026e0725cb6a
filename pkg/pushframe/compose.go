package pushframe

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"runtime"
	"sync"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/pushframe/pkg/emath"
)

// How mosaic values get mapped onto the output bit depth.
type Normalization string

const (
	// NormalizeDepth rescales linearly from the source bit depth's full
	// range to the output's. Only values beyond the source range clip.
	NormalizeDepth Normalization = "depth"

	// NormalizeMinMax stretches each mosaic's own min..max over the full
	// output range.
	NormalizeMinMax Normalization = "minmax"
)

// A ChannelMosaic is one channel's strips, realigned and stacked in frame
// order.
type ChannelMosaic struct {
	Channel  Channel
	BitDepth int             // of Levels
	Linear   emath.FloatGrid // resampled values, in source units
	Levels   emath.FloatGrid // normalized to whole numbers in 0 .. 2^BitDepth-1
}

func (m *ChannelMosaic) Dx() int { return m.Linear.Dx() }
func (m *ChannelMosaic) Dy() int { return m.Linear.Dy() }

func (m *ChannelMosaic) String() string {
	return fmt.Sprintf("Mosaic[%s %dx%d, %d-bit]", m.Channel, m.Dx(), m.Dy(), m.BitDepth)
}

// Image returns the normalized mosaic as an 8 or 16 bit grayscale image.
func (m *ChannelMosaic) Image() image.Image {
	r := image.Rect(0, 0, m.Dx(), m.Dy())
	if m.BitDepth <= 8 {
		img := image.NewGray(r)
		for y := 0; y < m.Dy(); y++ {
			for x, v := range m.Levels.Row(y) {
				img.SetGray(x, y, color.Gray{uint8(v)})
			}
		}
		return img
	}

	img := image.NewGray16(r)
	for y := 0; y < m.Dy(); y++ {
		for x, v := range m.Levels.Row(y) {
			img.SetGray16(x, y, color.Gray16{uint16(v)})
		}
	}
	return img
}

// A CompositeImage merges the three channel mosaics into one RGB image.
// Implements image.Image, over the normalized levels.
type CompositeImage struct {
	Planes    [BandsPerFrame]*ChannelMosaic // indexed by Channel
	SourceMax float64
}

func (ci *CompositeImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, ci.Planes[Green].Dx(), ci.Planes[Green].Dy())
}

func (ci *CompositeImage) ColorModel() color.Model {
	if ci.Planes[Green].BitDepth <= 8 {
		return color.RGBAModel
	}
	return color.RGBA64Model
}

func (ci *CompositeImage) At(x, y int) color.Color {
	r := ci.Planes[Red].Levels.Get(x, y)
	g := ci.Planes[Green].Levels.Get(x, y)
	b := ci.Planes[Blue].Levels.Get(x, y)
	if ci.Planes[Green].BitDepth <= 8 {
		return color.RGBA{uint8(r), uint8(g), uint8(b), 0xFF}
	}
	return color.RGBA64{uint16(r), uint16(g), uint16(b), 0xFFFF}
}

// HDR returns a linear view of the composite, before normalization, scaled
// so the source bit depth's full range maps to 1.0.
func (ci *CompositeImage) HDR() hdr.Image { return linearComposite{ci} }

type linearComposite struct {
	*CompositeImage
}

// Implement hdr.Image
func (lc linearComposite) ColorModel() color.Model   { return hdrcolor.RGBModel }
func (lc linearComposite) At(x, y int) color.Color   { return lc.HDRAt(x, y) }
func (lc linearComposite) Size() int                 { return lc.Bounds().Dx() * lc.Bounds().Dy() }
func (lc linearComposite) HDRAt(x, y int) hdrcolor.Color {
	s := lc.SourceMax
	return hdrcolor.RGB{
		R: lc.Planes[Red].Linear.Get(x, y) / s,
		G: lc.Planes[Green].Linear.Get(x, y) / s,
		B: lc.Planes[Blue].Linear.Get(x, y) / s,
	}
}

// Mosaics is everything the compositor produces.
type Mosaics struct {
	Channels     [BandsPerFrame]*ChannelMosaic // indexed by Channel
	Composite    *CompositeImage
	UsableFrames int
}

func (m Mosaics) Blue() *ChannelMosaic  { return m.Channels[Blue] }
func (m Mosaics) Green() *ChannelMosaic { return m.Channels[Green] }
func (m Mosaics) Red() *ChannelMosaic   { return m.Channels[Red] }

// A Compositor realigns strips by their shifts and assembles the mosaics.
type Compositor struct {
	Geometry       FrameGeometry
	SourceBitDepth int
	OutputBitDepth int // 8 or 16
	Normalization  Normalization
	Workers        int // zero means one per CPU
}

func NewCompositor(geom FrameGeometry, sourceBitDepth int) Compositor {
	return Compositor{
		Geometry:       geom,
		SourceBitDepth: sourceBitDepth,
		OutputBitDepth: 16,
		Normalization:  NormalizeDepth,
	}
}

func (cp Compositor) Validate() error {
	if !validBitDepth(cp.SourceBitDepth) {
		return configErrorf("sourcebitdepth", "must be between 1 and 16, got %d", cp.SourceBitDepth)
	}
	if cp.OutputBitDepth != 8 && cp.OutputBitDepth != 16 {
		return configErrorf("outputbitdepth", "must be 8 or 16, got %d", cp.OutputBitDepth)
	}
	switch cp.Normalization {
	case NormalizeDepth, NormalizeMinMax:
	default:
		return configErrorf("normalization", "no normalization named '%s'", cp.Normalization)
	}
	if cp.Geometry.BandHeight <= 0 {
		return configErrorf("geometry.bandheight", "must be positive, got %d", cp.Geometry.BandHeight)
	}
	return nil
}

type composeJob struct {
	Strip
	Shift PixelShift
}

// Compose resamples every strip by its shift (clamped bilinear; edges
// repeat) and writes it into its frame's slot in its channel's mosaic.
// Frame f's slot is rows [(f-1)*bandheight, f*bandheight). The strips must
// cover every channel of frames 1..n exactly once, as Demux produces.
func (cp Compositor) Compose(strips []Strip, shifts ShiftTable) (Mosaics, error) {
	if err := cp.Validate(); err != nil {
		return Mosaics{}, err
	}

	width, usable, err := cp.checkStrips(strips)
	if err != nil {
		return Mosaics{}, err
	}

	m := Mosaics{UsableFrames: usable}
	for _, c := range Channels {
		m.Channels[c] = &ChannelMosaic{
			Channel:  c,
			BitDepth: cp.OutputBitDepth,
			Linear:   emath.NewFloatGrid(width, usable*cp.Geometry.BandHeight),
		}
	}

	nWorkers := cp.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	jobsChan := make(chan composeJob, len(strips))
	errsChan := make(chan error, len(strips))

	// Each job owns a disjoint band of rows in one mosaic
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				moved := job.Grid.Translate(job.Shift.DX, job.Shift.DY)
				y0 := (job.Frame - 1) * cp.Geometry.BandHeight
				if err := m.Channels[job.Channel].Linear.PasteRows(moved, y0); err != nil {
					errsChan <- fmt.Errorf("compose %s: %v", job.Strip, err)
				}
			}
		}()
	}

	for _, s := range strips {
		jobsChan <- composeJob{s, shifts.Get(s.Frame, s.Channel)}
	}

	close(jobsChan)
	wg.Wait()
	close(errsChan)

	if err := <-errsChan; err != nil {
		return Mosaics{}, err
	}

	for _, c := range Channels {
		cp.normalize(m.Channels[c])
	}

	m.Composite = &CompositeImage{Planes: m.Channels, SourceMax: maxForDepth(cp.SourceBitDepth)}

	return m, nil
}

// checkStrips works out the mosaic width and the number of frame slots.
func (cp Compositor) checkStrips(strips []Strip) (int, int, error) {
	if len(strips) == 0 {
		return 0, 0, nil
	}

	width := strips[0].Grid.Dx()
	seen := map[[2]int]bool{}
	maxFrame := 0

	for _, s := range strips {
		switch {
		case !s.Channel.Valid():
			return 0, 0, fmt.Errorf("compose: %s has an unknown channel", s)
		case s.Frame < 1:
			return 0, 0, fmt.Errorf("compose: %s; frame 0 has no slot in the mosaic", s)
		case s.Grid.Dx() != width || s.Grid.Dy() != cp.Geometry.BandHeight:
			return 0, 0, fmt.Errorf("compose: %s, expected %dx%d", s, width, cp.Geometry.BandHeight)
		case seen[[2]int{s.Frame, int(s.Channel)}]:
			return 0, 0, fmt.Errorf("compose: %s appears twice", s)
		}
		seen[[2]int{s.Frame, int(s.Channel)}] = true
		if s.Frame > maxFrame {
			maxFrame = s.Frame
		}
	}

	if len(seen) != maxFrame*BandsPerFrame {
		return 0, 0, fmt.Errorf("compose: %d strips don't fill %d frame slots", len(seen), maxFrame)
	}

	return width, maxFrame, nil
}

func (cp Compositor) normalize(m *ChannelMosaic) {
	outMax := maxForDepth(cp.OutputBitDepth)
	m.Levels = m.Linear.NewFromThis()
	if m.Linear.Empty() {
		return
	}

	scale, offset := outMax/maxForDepth(cp.SourceBitDepth), 0.0
	if cp.Normalization == NormalizeMinMax {
		min, max := m.Linear.MinMax()
		scale, offset = 0, min
		if max > min {
			scale = outMax / (max - min)
		}
	}

	nClipped := 0
	for y := 0; y < m.Dy(); y++ {
		out := m.Levels.Row(y)
		for x, v := range m.Linear.Row(y) {
			level := math.Round((v - offset) * scale)
			if level > outMax || level < 0 {
				nClipped++
			}
			out[x] = emath.ClampF64(level, 0, outMax)
		}
	}

	if nClipped > 0 {
		log.Printf("%s: %d values beyond the %d-bit source range were clipped\n", m, nClipped, cp.SourceBitDepth)
	}
}
