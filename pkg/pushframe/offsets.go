package pushframe

import (
	"fmt"
	"log"
	"math"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/abworrall/pushframe/pkg/ephem"
)

// A StateProvider answers point-in-time spacecraft state queries. An
// *ephem.Provider is one; tests use synthetic ones. StateAt must be safe to
// call from several goroutines at once.
type StateProvider interface {
	StateAt(et float64) (ephem.State, error)
}

// A PixelShift is how far, in pixels, a channel's strip must move to line
// up with the reference channel of the same frame. DX runs along rows
// (columns increase), DY down the image (rows increase).
type PixelShift struct {
	DX float64
	DY float64
}

func (ps PixelShift) Magnitude() float64 { return math.Hypot(ps.DX, ps.DY) }
func (ps PixelShift) IsZero() bool       { return ps.DX == 0 && ps.DY == 0 }
func (ps PixelShift) String() string     { return fmt.Sprintf("(%+.3f,%+.3f)", ps.DX, ps.DY) }

// ChannelShifts holds one frame's shifts, indexed by Channel.
type ChannelShifts [BandsPerFrame]PixelShift

// A ShiftTable maps frame index to that frame's per-channel shifts.
type ShiftTable map[int]ChannelShifts

// Get returns the shift for (f,c), or a zero shift if the table has none.
func (st ShiftTable) Get(f int, c Channel) PixelShift {
	if shifts, exists := st[f]; exists && c.Valid() {
		return shifts[c]
	}
	return PixelShift{}
}

// Frames returns the frame indices in the table, sorted.
func (st ShiftTable) Frames() []int {
	frames := []int{}
	for f := range st {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames
}

// A CoverageGap records a (frame, channel) whose shift could not be
// computed because the kernels had no data for one of the times involved.
// Its shift was left at zero.
type CoverageGap struct {
	Frame   int
	Channel Channel
	ET      float64
	Err     error
}

func (g CoverageGap) String() string {
	return fmt.Sprintf("frame %d %s: %v", g.Frame, g.Channel, g.Err)
}

// An OffsetCalculator turns spacecraft attitude history into per-frame,
// per-channel pixel shifts.
type OffsetCalculator struct {
	Geometry  FrameGeometry
	Provider  StateProvider
	Boresight r3.Vec // in the instrument frame; zero means +Z
	Workers   int    // zero means one per CPU
}

// ComputeOffsets is the simple entry point, for a camera looking down +Z.
func ComputeOffsets(geom FrameGeometry, numFrames int, sp StateProvider, start float64) (ShiftTable, []CoverageGap, error) {
	oc := OffsetCalculator{Geometry: geom, Provider: sp}
	return oc.Compute(numFrames, start)
}

type offsetJob struct {
	Frame int

	// Outputs
	Shifts ChannelShifts
	Gaps   []CoverageGap
	Err    error
}

// Compute works out the shift table for frames [0, numFrames) of an image
// whose capture started at ephemeris time `start`. Times the kernels don't
// cover leave a zero shift and are reported as CoverageGaps (and logged);
// any other provider failure aborts the computation.
func (oc OffsetCalculator) Compute(numFrames int, start float64) (ShiftTable, []CoverageGap, error) {
	if err := oc.Geometry.Validate(); err != nil {
		return nil, nil, err
	}
	if oc.Provider == nil {
		return nil, nil, fmt.Errorf("compute offsets: no state provider")
	}

	axes, err := newCameraAxes(oc.Boresight)
	if err != nil {
		return nil, nil, configErrorf("boresight", "%v", err)
	}

	nWorkers := oc.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	jobsChan := make(chan offsetJob, numFrames)
	resultsChan := make(chan offsetJob, numFrames)

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				job.Shifts, job.Gaps, job.Err = oc.frameShifts(axes, job.Frame, start)
				resultsChan <- job
			}
		}()
	}

	for f := 0; f < numFrames; f++ {
		jobsChan <- offsetJob{Frame: f}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	table := ShiftTable{}
	gaps := []CoverageGap{}
	for result := range resultsChan {
		if result.Err != nil {
			return nil, nil, fmt.Errorf("compute offsets, frame %d: %w", result.Frame, result.Err)
		}
		table[result.Frame] = result.Shifts
		gaps = append(gaps, result.Gaps...)
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Frame != gaps[j].Frame {
			return gaps[i].Frame < gaps[j].Frame
		}
		return gaps[i].Channel < gaps[j].Channel
	})
	for _, gap := range gaps {
		log.Printf("WARNING: no coverage, zero shift used for %s\n", gap)
	}

	return table, gaps, nil
}

// frameShifts computes one frame's shifts. All three channels are sampled
// at the same row within their strip, so only the frame transfer time
// separates them.
func (oc OffsetCalculator) frameShifts(axes cameraAxes, f int, start float64) (ChannelShifts, []CoverageGap, error) {
	shifts := ChannelShifts{}
	gaps := []CoverageGap{}
	row := oc.Geometry.MidStripRow()

	refET := oc.Geometry.ExposureTime(start, f, ReferenceChannel, row)
	ref, refErr := oc.Provider.StateAt(refET)
	if refErr != nil && !ephem.IsOutOfCoverage(refErr) {
		return shifts, nil, refErr
	}

	for _, c := range Channels {
		if refErr != nil {
			gaps = append(gaps, CoverageGap{Frame: f, Channel: c, ET: refET, Err: refErr})
			continue
		}
		if c == ReferenceChannel {
			continue
		}

		et := oc.Geometry.ExposureTime(start, f, c, row)
		st, err := oc.Provider.StateAt(et)
		if ephem.IsOutOfCoverage(err) {
			gaps = append(gaps, CoverageGap{Frame: f, Channel: c, ET: et, Err: err})
			continue
		} else if err != nil {
			return shifts, nil, err
		}

		shifts[c] = axes.shift(ref.Orientation, st.Orientation, oc.Geometry.PixelScale)
	}

	return shifts, gaps, nil
}

// cameraAxes are the boresight, and the directions in the instrument frame
// along which image columns and rows increase.
type cameraAxes struct {
	boresight r3.Vec
	column    r3.Vec
	row       r3.Vec
}

// newCameraAxes sets up the focal plane axes for a boresight. For the +Z
// boresight, columns run along +X and rows along +Y.
func newCameraAxes(boresight r3.Vec) (cameraAxes, error) {
	if boresight == (r3.Vec{}) {
		boresight = r3.Vec{Z: 1}
	}
	n := r3.Norm(boresight)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return cameraAxes{}, fmt.Errorf("boresight %v is not a direction", boresight)
	}
	b := r3.Unit(boresight)

	row := r3.Cross(b, r3.Vec{X: 1})
	if r3.Norm(row) < 1e-9 {
		// Boresight lies along X; rows run along +Z instead
		row = r3.Cross(b, r3.Vec{Y: 1})
	}
	row = r3.Unit(row)

	return cameraAxes{boresight: b, column: r3.Cross(row, b), row: row}, nil
}

// shift is where the scene point under the boresight at the channel's
// exposure appears in the reference exposure, relative to the image
// centre, in pixels. Moving the channel's strip by that much lines it up
// with the reference.
func (ax cameraAxes) shift(ref, ch r3.Rotation, pixelScale float64) PixelShift {
	v := ephem.RelativeRotation(ch, ref).Rotate(ax.boresight)
	along := r3.Dot(v, ax.boresight)

	return PixelShift{
		DX: math.Atan2(r3.Dot(v, ax.column), along) / pixelScale,
		DY: math.Atan2(r3.Dot(v, ax.row), along) / pixelScale,
	}
}
