package pushframe

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// A Result is everything one processed raw image produces.
type Result struct {
	Mosaics
	Shifts    ShiftTable
	Gaps      []CoverageGap
	NumFrames int
}

// A Processor runs the whole pipeline over one raw image: shift table and
// demultiplexing side by side, then compositing.
type Processor struct {
	Geometry   FrameGeometry
	Provider   StateProvider
	Boresight  r3.Vec
	Compositor Compositor
	Verbosity  int
	DebugDir   string // where verbose diagnostics images go
}

// ProcessImage realigns and composites a raw image with default settings:
// a +Z boresight, and 16-bit output scaled from the image's bit depth.
func ProcessImage(raw *RawImage, geom FrameGeometry, sp StateProvider, start float64) (Result, error) {
	p := Processor{
		Geometry:   geom,
		Provider:   sp,
		Compositor: NewCompositor(geom, raw.BitDepth),
	}
	return p.Process(raw, start)
}

// Process runs the pipeline. Configuration problems are found before any
// work starts.
func (p Processor) Process(raw *RawImage, start float64) (Result, error) {
	if err := p.Geometry.Validate(); err != nil {
		return Result{}, err
	}
	numFrames, err := p.Geometry.NumFrames(raw.Dy())
	if err != nil {
		return Result{}, err
	}

	cp := p.Compositor
	cp.Geometry = p.Geometry
	if err := cp.Validate(); err != nil {
		return Result{}, err
	}

	log.Printf("Processing %s: %d frames (%d usable), %s\n", raw, numFrames, UsableFrames(numFrames), p.Geometry)

	res := Result{NumFrames: numFrames}
	var strips []Strip
	var offsetErr, demuxErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		oc := OffsetCalculator{
			Geometry:  p.Geometry,
			Provider:  p.Provider,
			Boresight: p.Boresight,
			Workers:   cp.Workers,
		}
		res.Shifts, res.Gaps, offsetErr = oc.Compute(numFrames, start)
	}()
	go func() {
		defer wg.Done()
		strips, demuxErr = Demux(raw, p.Geometry)
	}()
	wg.Wait()

	if offsetErr != nil {
		return Result{}, offsetErr
	}
	if demuxErr != nil {
		return Result{}, demuxErr
	}

	if res.Mosaics, err = cp.Compose(strips, res.Shifts); err != nil {
		return Result{}, err
	}

	if len(res.Gaps) > 0 {
		log.Printf("WARNING: %d (frame, channel) pairs had no kernel coverage, and were not realigned\n", len(res.Gaps))
	}

	if p.Verbosity > 0 {
		p.diagnose(cp, strips, res)
	}

	return res, nil
}

// diagnose logs how big the shifts were, and how much realignment
// changed each channel's match to the reference.
func (p Processor) diagnose(cp Compositor, strips []Strip, res Result) {
	LogShiftHistogram(res.Shifts)
	if res.UsableFrames == 0 {
		return
	}

	unshifted, err := cp.Compose(strips, ShiftTable{})
	if err != nil {
		log.Printf("diagnostics: %v\n", err)
		return
	}

	fullScale := maxForDepth(cp.SourceBitDepth)
	for _, c := range Channels {
		if c == ReferenceChannel {
			continue
		}
		debugFile := ""
		if p.Verbosity > 1 {
			debugFile = filepath.Join(p.DebugDir, fmt.Sprintf("residual-%s.png", c))
		}
		before := ChannelResidual(unshifted.Channels[ReferenceChannel].Linear, unshifted.Channels[c].Linear, fullScale, "")
		after := ChannelResidual(res.Channels[ReferenceChannel].Linear, res.Channels[c].Linear, fullScale, debugFile)
		log.Printf("Residual vs %s, %s: %.2f unshifted, %.2f realigned\n", ReferenceChannel, c, before, after)
	}
}
