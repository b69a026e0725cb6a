package ephem

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"
)

var (
	// J2000 is the epoch ephemeris times count from, labelled in UTC.
	J2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

	// TT - TAI, in seconds
	ttMinusTAI = 32.184
)

// A leapSecond is one step of the TAI-UTC table.
type leapSecond struct {
	From    time.Time
	DeltaAT float64
}

type leapSecondTable []leapSecond

func newLeapSecondTable(k lskKernel) (leapSecondTable, error) {
	if len(k.DeltaAT) == 0 {
		return nil, fmt.Errorf("no deltaat entries")
	}

	tbl := leapSecondTable{}
	for i, d := range k.DeltaAT {
		t, err := time.Parse(time.RFC3339, d.UTC)
		if err != nil {
			return nil, fmt.Errorf("deltaat[%d]: %v", i, err)
		}
		tbl = append(tbl, leapSecond{From: t.UTC(), DeltaAT: d.Seconds})
	}
	sort.Slice(tbl, func(i, j int) bool { return tbl[i].From.Before(tbl[j].From) })

	return tbl, nil
}

// deltaAT returns TAI-UTC in effect at `t`.
func (tbl leapSecondTable) deltaAT(t time.Time) (float64, bool) {
	i := sort.Search(len(tbl), func(i int) bool { return tbl[i].From.After(t) }) - 1
	if i < 0 {
		return 0, false
	}
	return tbl[i].DeltaAT, true
}

// utcToET ignores the periodic TDB-TT terms (under 2ms), so what comes back
// is really TT seconds past J2000.
func (tbl leapSecondTable) utcToET(t time.Time) (float64, error) {
	dAT, ok := tbl.deltaAT(t.UTC())
	if !ok {
		return 0, fmt.Errorf("UTC %s predates the leapseconds table", t.UTC().Format(time.RFC3339))
	}
	return t.UTC().Sub(J2000).Seconds() + dAT + ttMinusTAI, nil
}

func (tbl leapSecondTable) etToUTC(et float64) time.Time {
	// Guess with the most recent offset, then correct once with the offset in
	// effect at the guess.
	dAT := tbl[len(tbl)-1].DeltaAT
	for i := 0; i < 2; i++ {
		t := J2000.Add(time.Duration((et - dAT - ttMinusTAI) * float64(time.Second)))
		if d, ok := tbl.deltaAT(t); ok {
			dAT = d
		}
	}
	return J2000.Add(time.Duration((et - dAT - ttMinusTAI) * float64(time.Second)))
}

// An sclkTable converts spacecraft clock ticks to ephemeris time.
// Between partitions it interpolates linearly; beyond the last partition it
// extrapolates at the nominal tick rate.
type sclkTable struct {
	spacecraft     int
	ticksPerSecond float64
	ticks          []float64
	ets            []float64
	fit            *interp.PiecewiseLinear
}

func newSCLKTable(k sclkKernel) (*sclkTable, error) {
	if len(k.Partitions) == 0 {
		return nil, fmt.Errorf("no partitions")
	}
	if k.TicksPerSecond <= 0 {
		return nil, fmt.Errorf("tickspersecond must be positive, got %g", k.TicksPerSecond)
	}

	st := &sclkTable{spacecraft: k.Spacecraft, ticksPerSecond: k.TicksPerSecond}
	for i, p := range k.Partitions {
		if i > 0 && p.Ticks <= st.ticks[i-1] {
			return nil, fmt.Errorf("partition %d: ticks not strictly increasing", i)
		}
		st.ticks = append(st.ticks, p.Ticks)
		st.ets = append(st.ets, p.ET)
	}

	if len(st.ticks) >= 2 {
		st.fit = &interp.PiecewiseLinear{}
		st.fit.Fit(st.ticks, st.ets)
	}

	return st, nil
}

func (st *sclkTable) toET(ticks float64) (float64, error) {
	n := len(st.ticks)
	switch {
	case ticks < st.ticks[0]:
		return 0, &TimeOutOfCoverageError{ET: ticks, Kind: CoverageClock}
	case ticks >= st.ticks[n-1]:
		return st.ets[n-1] + (ticks-st.ticks[n-1])/st.ticksPerSecond, nil
	default:
		return st.fit.Predict(ticks), nil
	}
}
