package ephem

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// Only one kernel pool may be live per process; Load claims it and
	// Unload gives it back.
	poolMu sync.Mutex
	active *Provider
)

// A Provider is a loaded kernel pool. It answers state queries for the
// spacecraft, and time conversions. Queries are safe to make concurrently;
// Unload waits for in-flight queries to finish, and any later query fails
// with ErrUnloaded.
type Provider struct {
	mu     sync.RWMutex
	loaded bool
	files  []KernelFile

	leapSeconds leapSecondTable
	bodies      map[string]Body
	frames      map[string]frameDef
	instrument  InstrumentInfo
	clock       *sclkTable
	trajectory  []*spkSegment
	orientation []*ckSegment

	// Fixed rotation from the instrument frame into the frame the CK
	// records the attitude of.
	instrumentToBus quat.Number
}

// Load reads every kernel in the set. It fails with a KernelNotFoundError
// if any category has no file or a file is missing, and a KernelLoadError
// if a file is malformed. On failure nothing stays loaded. On success the
// caller owns the Provider and must Unload it.
func Load(ks KernelSet) (*Provider, error) {
	poolMu.Lock()
	defer poolMu.Unlock()

	if active != nil {
		return nil, ErrProviderActive
	}

	p := &Provider{
		bodies: map[string]Body{},
		frames: map[string]frameDef{},
	}

	for _, kf := range ks.Files() {
		if err := p.furnish(kf); err != nil {
			p.release()
			return nil, err
		}
		p.files = append(p.files, kf)
		log.Printf("Loaded: %s (%s)\n", filepath.Base(kf.Path), kf.Category.Description())
	}

	if err := p.finalize(); err != nil {
		p.release()
		return nil, err
	}

	p.loaded = true
	active = p
	return p, nil
}

func (p *Provider) furnish(kf KernelFile) error {
	loadErr := func(err error) error {
		return &KernelLoadError{Category: kf.Category, Path: kf.Path, Err: err}
	}

	switch kf.Category {
	case LeapSeconds:
		k := lskKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		tbl, err := newLeapSecondTable(k)
		if err != nil {
			return loadErr(err)
		}
		p.leapSeconds = tbl

	case PlanetaryConstants:
		k := pckKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		for name, b := range k.Bodies {
			b.Name = name
			p.bodies[name] = b
		}

	case Frames:
		k := fkKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		for name, f := range k.Frames {
			if len(f.Rotation) > 0 {
				if _, err := quatFrom(f.Rotation); err != nil {
					return loadErr(fmt.Errorf("frame %s: %v", name, err))
				}
			}
			p.frames[name] = f
		}

	case Instrument:
		k := ikKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		info, err := newInstrumentInfo(k)
		if err != nil {
			return loadErr(err)
		}
		p.instrument = info

	case SpacecraftClock:
		k := sclkKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		st, err := newSCLKTable(k)
		if err != nil {
			return loadErr(err)
		}
		p.clock = st

	case Trajectory:
		k := spkKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		seg, err := newSPKSegment(kf.Path, k)
		if err != nil {
			return loadErr(err)
		}
		p.trajectory = append(p.trajectory, seg)

	case Orientation:
		k := ckKernel{}
		if err := readKernel(kf, &k); err != nil {
			return err
		}
		seg, err := newCKSegment(kf.Path, k)
		if err != nil {
			return loadErr(err)
		}
		p.orientation = append(p.orientation, seg)

	default:
		return fmt.Errorf("unknown kernel category '%s'", kf.Category)
	}

	return nil
}

func newInstrumentInfo(k ikKernel) (InstrumentInfo, error) {
	in := k.Instrument
	info := InstrumentInfo{
		Name:              in.Name,
		ID:                in.ID,
		Frame:             in.Frame,
		Boresight:         r3.Vec{Z: 1},
		PixelScale:        in.PixelScale,
		LineTime:          in.LineTime,
		FrameTransferTime: in.FrameTransferTime,
	}

	if in.Frame == "" {
		return info, fmt.Errorf("instrument %q names no frame", in.Name)
	}
	if in.PixelScale < 0 || in.LineTime < 0 || in.FrameTransferTime < 0 {
		return info, fmt.Errorf("instrument %q has negative timing or scale", in.Name)
	}
	if len(in.Boresight) > 0 {
		b, err := vec3From(in.Boresight, "boresight")
		if err != nil {
			return info, err
		}
		v := r3.Vec{X: b[0], Y: b[1], Z: b[2]}
		if r3.Norm(v) == 0 {
			return info, fmt.Errorf("boresight has zero length")
		}
		info.Boresight = r3.Unit(v)
	}

	return info, nil
}

// finalize cross-checks what got loaded: the instrument frame must connect
// to the frame every orientation kernel records.
func (p *Provider) finalize() error {
	bus := ""
	for _, seg := range p.orientation {
		if bus == "" {
			bus = seg.frame
		} else if seg.frame != bus {
			return &KernelLoadError{Category: Orientation, Path: seg.path,
				Err: fmt.Errorf("records frame %s, other orientation kernels record %s", seg.frame, bus)}
		}
	}

	q, err := chainRotation(p.frames, p.instrument.Frame, bus)
	if err != nil {
		return &KernelLoadError{Category: Frames, Path: p.pathOf(Frames), Err: err}
	}
	p.instrumentToBus = q

	return nil
}

func (p *Provider) pathOf(c Category) string {
	for _, kf := range p.files {
		if kf.Category == c {
			return kf.Path
		}
	}
	return ""
}

// release drops everything and gives up the process-wide claim. Callers
// hold p.mu, or own p exclusively.
func (p *Provider) release() {
	p.loaded = false
	p.files = nil
	p.leapSeconds = nil
	p.bodies = nil
	p.frames = nil
	p.instrument = InstrumentInfo{}
	p.clock = nil
	p.trajectory = nil
	p.orientation = nil
}

// Unload releases the kernel pool. It is safe to call more than once, and
// on a nil Provider (e.g. after Load failed).
func (p *Provider) Unload() {
	if p == nil {
		return
	}

	p.mu.Lock()
	wasLoaded := p.loaded
	p.release()
	p.mu.Unlock()

	poolMu.Lock()
	if active == p {
		active = nil
	}
	poolMu.Unlock()

	if wasLoaded {
		log.Printf("Kernels unloaded\n")
	}
}

// StateAt returns the spacecraft state at ephemeris time `et`. It fails
// with a TimeOutOfCoverageError if no loaded trajectory or orientation
// kernel covers `et`. Later-loaded kernels win where coverage overlaps.
func (p *Provider) StateAt(et float64) (State, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return State{}, ErrUnloaded
	}

	var spk *spkSegment
	for i := len(p.trajectory) - 1; i >= 0; i-- {
		if p.trajectory[i].covers(et) {
			spk = p.trajectory[i]
			break
		}
	}
	if spk == nil {
		return State{}, &TimeOutOfCoverageError{ET: et, Kind: CoverageTrajectory}
	}

	var ck *ckSegment
	for i := len(p.orientation) - 1; i >= 0; i-- {
		if p.orientation[i].covers(et) {
			ck = p.orientation[i]
			break
		}
	}
	if ck == nil {
		return State{}, &TimeOutOfCoverageError{ET: et, Kind: CoverageOrientation}
	}

	pos, vel := spk.at(et)
	attitude := ck.at(et)

	return State{
		ET:          et,
		Position:    pos,
		Velocity:    vel,
		Center:      spk.center,
		Frame:       ck.reference,
		Orientation: toRotation(quat.Mul(attitude, p.instrumentToBus)),
	}, nil
}

// UTCToET converts a UTC time to ephemeris time, using the leapseconds
// kernel.
func (p *Provider) UTCToET(t time.Time) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return 0, ErrUnloaded
	}
	return p.leapSeconds.utcToET(t)
}

// ETToUTC is the inverse of UTCToET, good to well under a millisecond.
func (p *Provider) ETToUTC(et float64) (time.Time, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return time.Time{}, ErrUnloaded
	}
	return p.leapSeconds.etToUTC(et), nil
}

// SCLKToET converts a spacecraft clock tick count to ephemeris time. Ticks
// before the first clock partition are out of coverage.
func (p *Provider) SCLKToET(ticks float64) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return 0, ErrUnloaded
	}
	return p.clock.toET(ticks)
}

// Instrument returns what the instrument kernel says about the camera.
func (p *Provider) Instrument() InstrumentInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.instrument
}

// Body looks up a body from the planetary constants kernel.
func (p *Provider) Body(name string) (Body, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	b, exists := p.bodies[name]
	return b, exists
}

// Coverage lists the time window of every loaded trajectory and
// orientation kernel, in load order.
func (p *Provider) Coverage() []Window {
	p.mu.RLock()
	defer p.mu.RUnlock()

	windows := []Window{}
	for _, s := range p.trajectory {
		windows = append(windows, Window{Trajectory, s.path, s.start, s.stop})
	}
	for _, s := range p.orientation {
		windows = append(windows, Window{Orientation, s.path, s.start(), s.stop()})
	}
	return windows
}

// Files lists the kernels that were loaded, in load order.
func (p *Provider) Files() []KernelFile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]KernelFile{}, p.files...)
}
