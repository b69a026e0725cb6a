package pushframe

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/pushframe/pkg/ephem"
)

func TestChannels(t *testing.T) {
	assert.Equal(t, "blue", Blue.String())
	assert.Equal(t, "green", ReferenceChannel.String())
	assert.Equal(t, "red", Red.String())
	assert.False(t, Channel(3).Valid())
	assert.Equal(t, "channel(3)", Channel(3).String())

	geom := NewFrameGeometry()
	assert.Equal(t, 128, geom.BandHeight)
	assert.Equal(t, 0, geom.ChannelRowOffset(Blue))
	assert.Equal(t, 128, geom.ChannelRowOffset(Green))
	assert.Equal(t, 256, geom.ChannelRowOffset(Red))
	assert.Equal(t, 384, geom.FrameHeight())
}

func TestNumFrames(t *testing.T) {
	geom := testGeometry()

	n, err := geom.NumFrames(12 * 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 5, UsableFrames(n))

	n, err = geom.NumFrames(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, frames := range []int{0, 1, 2} {
		assert.Equal(t, 0, UsableFrames(frames))
	}
	assert.Equal(t, 1, UsableFrames(3))

	_, err = geom.NumFrames(12*7 + 5)
	ce := &ConfigurationError{}
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rows", ce.Field)
}

func TestExposureTime(t *testing.T) {
	geom := testGeometry()

	// start + f*3*lineTime*bandHeight + c*frameTransferTime + row*lineTime
	assert.InDelta(t, 100.0, geom.ExposureTime(100, 0, Blue, 0), 1e-12)
	assert.InDelta(t, 100.0+2*0.12+0.002+3*0.01, geom.ExposureTime(100, 2, Red, 3), 1e-12)
	assert.InDelta(t, geom.FrameTransferTime,
		geom.ExposureTime(100, 5, Green, 2)-geom.ExposureTime(100, 5, Blue, 2), 1e-12)
}

func TestGeometryValidate(t *testing.T) {
	assert.NoError(t, testGeometry().Validate())

	tests := []struct {
		field string
		tweak func(*FrameGeometry)
	}{
		{"geometry.bandheight", func(g *FrameGeometry) { g.BandHeight = 0 }},
		{"geometry.bandsperframe", func(g *FrameGeometry) { g.BandsPerFrame = 4 }},
		{"geometry.frametransfertime", func(g *FrameGeometry) { g.FrameTransferTime = -1 }},
		{"geometry.linetime", func(g *FrameGeometry) { g.LineTime = math.NaN() }},
		{"geometry.pixelscale", func(g *FrameGeometry) { g.PixelScale = 0 }},
	}

	for _, test := range tests {
		geom := testGeometry()
		test.tweak(&geom)
		err := geom.Validate()
		ce := &ConfigurationError{}
		require.True(t, errors.As(err, &ce), test.field)
		assert.Equal(t, test.field, ce.Field)
	}
}

func TestFillFromInstrument(t *testing.T) {
	info := ephem.InstrumentInfo{PixelScale: 0.000673, LineTime: 0.0032, FrameTransferTime: 0.002}

	geom := NewFrameGeometry().FillFromInstrument(info)
	assert.Equal(t, 0.000673, geom.PixelScale)
	assert.Equal(t, 0.0032, geom.LineTime)
	assert.Equal(t, 0.002, geom.FrameTransferTime)

	geom = testGeometry().FillFromInstrument(info)
	assert.Equal(t, testGeometry(), geom)
}
