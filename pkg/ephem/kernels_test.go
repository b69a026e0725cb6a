package ephem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelSetFiles(t *testing.T) {
	ks := KernelSet{
		Dir:         "/kernels",
		LeapSeconds: "lsk/naif0012.yaml",
		Frames:      "/elsewhere/juno.yaml",
		Trajectory:  []string{"spk/a.yaml", "spk/b.yaml"},
	}

	files := ks.Files()
	require.Len(t, files, 8)
	assert.Equal(t, KernelFile{LeapSeconds, "/kernels/lsk/naif0012.yaml"}, files[0])
	assert.Equal(t, KernelFile{Category: PlanetaryConstants}, files[1])
	assert.Equal(t, KernelFile{Frames, "/elsewhere/juno.yaml"}, files[2])
	assert.Equal(t, KernelFile{Trajectory, "/kernels/spk/b.yaml"}, files[6])
	assert.Equal(t, KernelFile{Category: Orientation}, files[7])
}

func TestInventory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "lsk", "naif0012.yaml"), testLSK)
	writeTestFile(t, filepath.Join(dir, "spk", "b.yaml"), testSPK)
	writeTestFile(t, filepath.Join(dir, "spk", "a.yaml"), testSPK)
	writeTestFile(t, filepath.Join(dir, "notes", "readme.txt"), "hello")

	inv, err := Inventory(dir)
	require.NoError(t, err)
	assert.Len(t, inv[LeapSeconds], 1)
	require.Len(t, inv[Trajectory], 2)
	assert.Equal(t, filepath.Join(dir, "spk", "a.yaml"), inv[Trajectory][0].Path)
	assert.Equal(t, int64(len(testSPK)), inv[Trajectory][0].Size)
	assert.Empty(t, inv[Orientation])

	ks := SetFromInventory(inv)
	assert.Equal(t, filepath.Join(dir, "lsk", "naif0012.yaml"), ks.LeapSeconds)
	assert.Equal(t, "", ks.Instrument)
	assert.Len(t, ks.Trajectory, 2)

	_, err = Inventory(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
