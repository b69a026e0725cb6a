package pushframe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/abworrall/pushframe/pkg/ephem"
)

func TestStationarySpacecraftHasNoShift(t *testing.T) {
	geom := testGeometry()

	shifts, gaps, err := ComputeOffsets(geom, 6, spinningProvider{}, 1000)
	require.NoError(t, err)
	assert.Empty(t, gaps)
	require.Len(t, shifts, 6)
	for f := 0; f < 6; f++ {
		for _, c := range Channels {
			assert.Equal(t, PixelShift{}, shifts.Get(f, c), "frame %d %s", f, c)
		}
	}

	// Held at some arbitrary attitude, rather than the identity
	sp := spinningProvider{attitude: r3.NewRotation(0.7, r3.Vec{X: 1, Y: 2, Z: -0.5})}
	shifts, _, err = ComputeOffsets(geom, 6, sp, 1000)
	require.NoError(t, err)
	for f := 0; f < 6; f++ {
		for _, c := range Channels {
			assert.InDelta(t, 0, shifts.Get(f, c).DX, 1e-9)
			assert.InDelta(t, 0, shifts.Get(f, c).DY, 1e-9)
		}
		assert.Equal(t, PixelShift{}, shifts.Get(f, ReferenceChannel))
	}
}

func TestConstantRotationRate(t *testing.T) {
	geom := testGeometry()

	for _, omega := range []float64{0.005, 0.01, 0.02} {
		// Turning about the instrument Y axis swings the boresight along X
		sp := spinningProvider{axis: r3.Vec{Y: 1}, rate: omega}
		shifts, gaps, err := ComputeOffsets(geom, 5, sp, 100)
		require.NoError(t, err)
		assert.Empty(t, gaps)

		expected := omega * geom.FrameTransferTime / geom.PixelScale
		for f := 0; f < 5; f++ {
			assert.Equal(t, PixelShift{}, shifts.Get(f, Green), "frame %d", f)
			assert.InDelta(t, -expected, shifts.Get(f, Blue).DX, 1e-6, "frame %d, omega %g", f, omega)
			assert.InDelta(t, expected, shifts.Get(f, Red).DX, 1e-6, "frame %d, omega %g", f, omega)
			assert.InDelta(t, 0, shifts.Get(f, Red).DY, 1e-9)
			assert.InDelta(t, expected, shifts.Get(f, Red).Magnitude(), 1e-6)
		}
	}

	// Turning about X swings it along Y instead
	sp := spinningProvider{axis: r3.Vec{X: 1}, rate: 0.01}
	shifts, _, err := ComputeOffsets(geom, 3, sp, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0, shifts.Get(1, Red).DX, 1e-9)
	assert.InDelta(t, 1.0, math.Abs(shifts.Get(1, Red).DY), 1e-6)
	assert.InDelta(t, -shifts.Get(1, Red).DY, shifts.Get(1, Blue).DY, 1e-9)
}

func TestOffsetsWithTiltedBoresight(t *testing.T) {
	geom := testGeometry()
	sp := spinningProvider{axis: r3.Vec{Y: 1}, rate: 0.01}

	oc := OffsetCalculator{Geometry: geom, Provider: sp, Boresight: r3.Vec{Z: 5}, Workers: 2}
	shifts, _, err := oc.Compute(4, 100)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, shifts.Get(2, Red).DX, 1e-6)

	// A boresight along the spin axis doesn't move at all
	oc.Boresight = r3.Vec{Y: 1}
	shifts, _, err = oc.Compute(4, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0, shifts.Get(2, Red).Magnitude(), 1e-9)
}

func TestOffsetsCoverageGap(t *testing.T) {
	logs := captureLog(t)
	geom := testGeometry()
	start := 100.0

	redFrame3 := geom.ExposureTime(start, 3, Red, geom.MidStripRow())
	refFrame0 := geom.ExposureTime(start, 0, ReferenceChannel, geom.MidStripRow())
	sp := spinningProvider{
		axis: r3.Vec{Y: 1},
		rate: 0.01,
		uncovered: func(et float64) bool {
			return et == redFrame3 || et == refFrame0
		},
	}

	shifts, gaps, err := ComputeOffsets(geom, 5, sp, start)
	require.NoError(t, err)
	require.Len(t, shifts, 5)

	// Frame 0 lost its reference, so all three channels are gaps; frame 3
	// only lost Red
	require.Len(t, gaps, 4)
	for i, c := range Channels {
		assert.Equal(t, 0, gaps[i].Frame)
		assert.Equal(t, c, gaps[i].Channel)
		assert.Equal(t, PixelShift{}, shifts.Get(0, c))
	}
	assert.Equal(t, 3, gaps[3].Frame)
	assert.Equal(t, Red, gaps[3].Channel)
	assert.Equal(t, redFrame3, gaps[3].ET)
	assert.True(t, ephem.IsOutOfCoverage(gaps[3].Err))

	assert.Equal(t, PixelShift{}, shifts.Get(3, Red))
	assert.InDelta(t, -1.0, shifts.Get(3, Blue).DX, 1e-6)
	assert.InDelta(t, 1.0, shifts.Get(2, Red).DX, 1e-6)

	assert.Contains(t, logs.String(), "WARNING")
	assert.Contains(t, logs.String(), "frame 3 red")
}

func TestOffsetsFatalProviderError(t *testing.T) {
	_, _, err := ComputeOffsets(testGeometry(), 3, spinningProvider{err: ephem.ErrUnloaded}, 0)
	assert.ErrorIs(t, err, ephem.ErrUnloaded)

	_, _, err = ComputeOffsets(testGeometry(), 3, nil, 0)
	assert.Error(t, err)

	geom := testGeometry()
	geom.PixelScale = 0
	_, _, err = ComputeOffsets(geom, 3, spinningProvider{}, 0)
	ce := &ConfigurationError{}
	assert.ErrorAs(t, err, &ce)
}

func TestShiftTable(t *testing.T) {
	st := ShiftTable{
		4: ChannelShifts{Blue: {DX: -1}, Red: {DX: 1, DY: 2}},
		2: ChannelShifts{},
	}

	assert.Equal(t, []int{2, 4}, st.Frames())
	assert.Equal(t, PixelShift{DX: 1, DY: 2}, st.Get(4, Red))
	assert.Equal(t, PixelShift{}, st.Get(7, Red))
	assert.Equal(t, PixelShift{}, st.Get(4, Channel(9)))
	assert.True(t, st.Get(2, Blue).IsZero())
	assert.Equal(t, "(+1.000,+2.000)", st.Get(4, Red).String())
}
