package pushframe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`
verbosity: 2
geometry:
  frametransfertime: 0.001
  linetime: 0.0032
kernels:
  dir: /kernels
  leapseconds: lsk/naif0012.yaml
  trajectory: [ spk/a.yaml, spk/b.yaml ]
capturestart: "et:12.5"
outputformat: tiff
writehdr: true
`), 0644))

	cfg, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Verbosity)
	assert.Equal(t, 128, cfg.Geometry.BandHeight)
	assert.Equal(t, 3, cfg.Geometry.BandsPerFrame)
	assert.Equal(t, 0.0032, cfg.Geometry.LineTime)
	assert.Equal(t, "/kernels", cfg.Kernels.Dir)
	assert.Equal(t, []string{"spk/a.yaml", "spk/b.yaml"}, cfg.Kernels.Trajectory)
	assert.Equal(t, "et:12.5", cfg.CaptureStart)
	assert.Equal(t, "tiff", cfg.OutputFormat)
	assert.Equal(t, 16, cfg.OutputBitDepth)
	assert.Equal(t, NormalizeDepth, cfg.Normalization)
	assert.True(t, cfg.WriteHDR)
	assert.NoError(t, cfg.Validate())

	assert.Contains(t, cfg.AsYaml(), "bandheight: 128")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigUnknownOption(t *testing.T) {
	_, err := newConfigFromYaml([]byte("bandheigth: 64\n"))
	ce := &ConfigurationError{}
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "yaml", ce.Field)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		field string
		tweak func(*Config)
	}{
		{"geometry.bandheight", func(c *Config) { c.Geometry.BandHeight = -4 }},
		{"geometry.pixelscale", func(c *Config) { c.Geometry.PixelScale = -1 }},
		{"sourcebitdepth", func(c *Config) { c.SourceBitDepth = 32 }},
		{"outputbitdepth", func(c *Config) { c.OutputBitDepth = 10 }},
		{"normalization", func(c *Config) { c.Normalization = "log" }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"outputformat", func(c *Config) { c.OutputFormat = "jpeg" }},
		{"previewwidth", func(c *Config) { c.PreviewWidth = -10 }},
	}

	for _, test := range tests {
		cfg := NewConfig()
		test.tweak(&cfg)
		ce := &ConfigurationError{}
		require.ErrorAs(t, cfg.Validate(), &ce, test.field)
		assert.Equal(t, test.field, ce.Field)
	}

	// Pixel scale can come from the instrument kernel later
	assert.NoError(t, NewConfig().Validate())
}

func TestConfigCompositor(t *testing.T) {
	cfg := NewConfig()
	cfg.OutputBitDepth = 8
	cfg.Workers = 3

	cp := cfg.Compositor(16)
	assert.Equal(t, 16, cp.SourceBitDepth)
	assert.Equal(t, 8, cp.OutputBitDepth)
	assert.Equal(t, 3, cp.Workers)

	cfg.SourceBitDepth = 12
	assert.Equal(t, 12, cfg.Compositor(16).SourceBitDepth)
}
