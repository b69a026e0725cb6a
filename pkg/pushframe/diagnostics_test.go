package pushframe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/pushframe/pkg/emath"
)

func TestShiftMapImage(t *testing.T) {
	st := ShiftTable{
		0: ChannelShifts{Blue: {DX: -1.2}, Red: {DX: 1.2, DY: 0.1}},
		1: ChannelShifts{Blue: {DX: -1.1}, Red: {DX: 1.1, DY: 0.1}},
		2: ChannelShifts{},
	}
	gaps := []CoverageGap{{Frame: 2, Channel: Red}}

	filename := filepath.Join(t.TempDir(), "shiftmap.png")
	require.NoError(t, ShiftMapImage(st, gaps, filename))
	_, err := os.Stat(filename)
	assert.NoError(t, err)

	assert.Error(t, ShiftMapImage(ShiftTable{}, nil, filename))

	captureLog(t)
	LogShiftHistogram(st)
}

func TestChannelResidual(t *testing.T) {
	ref := emath.NewFloatGrid(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			ref.Set(x, y, float64(20+10*x))
		}
	}

	// Same scene through a dimmer filter is a perfect match
	dimmer := ref.NewFromThis()
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			dimmer.Set(x, y, ref.Get(x, y)/2)
		}
	}
	assert.InDelta(t, 0, ChannelResidual(ref, dimmer, 255, ""), 1e-9)

	moved := ref.Translate(1, 0)
	debugFile := filepath.Join(t.TempDir(), "residual.png")
	assert.Greater(t, ChannelResidual(ref, moved, 255, debugFile), 0.0)
	_, err := os.Stat(debugFile)
	assert.NoError(t, err)

	assert.Equal(t, 0.0, ChannelResidual(ref, emath.NewFloatGrid(3, 3), 255, ""))
}
