package pushframe

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/pushframe/pkg/ephem"
)

/* Example config file ...

verbosity: 1
geometry:
  bandheight: 128
  frametransfertime: 0.001
  linetime: 0.0032
kernels:
  dir: kernels
  leapseconds: lsk/naif0012.yaml
  planetaryconstants: pck/pck00011.yaml
  frames: fk/juno_v12.yaml
  instrument: ik/juno_junocam_v03.yaml
  spacecraftclock: sclk/jno_sclkscet_00120.yaml
  trajectory: [ spk/juno_rec_220101_220401.yaml ]
  orientation: [ ck/juno_rec_220220_220227.yaml ]
outputdir: out
writehdr: true
previewwidth: 800

*/

type Config struct {
	Verbosity int

	Geometry FrameGeometry
	Kernels  ephem.KernelSet

	CaptureStart   string // RFC3339 UTC, "et:<seconds>" or "sclk:<hex>"; empty means work it out from the input
	SourceBitDepth int    // zero means work it out from the input
	OutputBitDepth int
	Normalization  Normalization
	Workers        int // zero means one per CPU

	OutputDir    string
	OutputFormat string // png or tiff
	WriteHDR     bool   // also write the linear composite as Radiance .hdr
	PreviewWidth int    // if >0, write a downscaled composite this wide
	ShiftMap     bool   // write an image of the shift table
}

func NewConfig() Config {
	return Config{
		Geometry:       NewFrameGeometry(),
		OutputBitDepth: 16,
		Normalization:  NormalizeDepth,
		OutputDir:      ".",
		OutputFormat:   "png",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, &ConfigurationError{Field: "yaml", Reason: err.Error()}
	}
	return c, nil
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}

	return newConfigFromYaml(contents)
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Validate checks everything that can be checked before the kernels and
// the input are loaded, except that zero pixelscale or linetime are
// allowed, as the instrument kernel may supply them.
func (c Config) Validate() error {
	geom := c.Geometry
	if geom.PixelScale == 0 {
		geom.PixelScale = 1 // placeholder, checked again once filled in
	}
	if err := geom.Validate(); err != nil {
		return err
	}

	if c.SourceBitDepth != 0 && !validBitDepth(c.SourceBitDepth) {
		return configErrorf("sourcebitdepth", "must be between 1 and 16, got %d", c.SourceBitDepth)
	}
	if err := c.Compositor(1).Validate(); err != nil {
		return err
	}

	switch {
	case c.Workers < 0:
		return configErrorf("workers", "can't be negative, got %d", c.Workers)
	case c.OutputFormat != "png" && c.OutputFormat != "tiff":
		return configErrorf("outputformat", "must be png or tiff, got '%s'", c.OutputFormat)
	case c.PreviewWidth < 0:
		return configErrorf("previewwidth", "can't be negative, got %d", c.PreviewWidth)
	}

	return nil
}

// Compositor builds a compositor for an input of the given bit depth; a
// configured source bit depth takes precedence.
func (c Config) Compositor(inputBitDepth int) Compositor {
	cp := NewCompositor(c.Geometry, inputBitDepth)
	if c.SourceBitDepth != 0 {
		cp.SourceBitDepth = c.SourceBitDepth
	}
	cp.OutputBitDepth = c.OutputBitDepth
	cp.Normalization = c.Normalization
	cp.Workers = c.Workers
	return cp
}
