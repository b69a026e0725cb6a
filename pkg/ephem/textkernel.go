package ephem

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Kernels are YAML text documents. Every document starts with a `kernel:`
// tag naming its category, and has an optional free-text `comment:`.

/* Example trajectory kernel ...

kernel: spk
comment: reconstructed, 2022-02-25 perijove pass
target: -61
center: 599
frame: J2000
records:
- et: 699019269.18
  position: [ -55893.3, 76233.9, 2001.5 ]
  velocity: [ -18.21, -27.91, 0.33 ]
- et: 699019329.18
  position: [ -56986.1, 74558.0, 2021.2 ]
  velocity: [ -18.20, -27.95, 0.33 ]

*/

type kernelHeader struct {
	Kernel string
}

type lskKernel struct {
	Kernel  string
	Comment string
	DeltaAT []struct {
		UTC     string
		Seconds float64
	}
}

type pckKernel struct {
	Kernel  string
	Comment string
	Bodies  map[string]Body
}

type fkKernel struct {
	Kernel  string
	Comment string
	Frames  map[string]frameDef
}

type ikKernel struct {
	Kernel     string
	Comment    string
	Instrument struct {
		Name              string
		ID                int
		Frame             string
		Boresight         []float64
		PixelScale        float64 // radians per pixel
		LineTime          float64 // seconds per row
		FrameTransferTime float64 // seconds between filter exposures
	}
}

type sclkKernel struct {
	Kernel         string
	Comment        string
	Spacecraft     int
	TicksPerSecond float64
	Partitions     []struct {
		Ticks float64
		ET    float64
	}
}

type spkKernel struct {
	Kernel  string
	Comment string
	Target  int
	Center  int
	Frame   string
	Records []struct {
		ET       float64
		Position []float64 // km
		Velocity []float64 // km/s
	}
}

type ckKernel struct {
	Kernel    string
	Comment   string
	Frame     string // the frame whose attitude is recorded, usually the spacecraft bus
	Reference string // the inertial frame it is recorded against
	Records   []struct {
		ET         float64
		Quaternion []float64 // [w, x, y, z], rotates Frame vectors into Reference
	}
}

// readKernel loads one kernel file into `out`, checking that it is tagged
// with the category it was configured under.
func readKernel(kf KernelFile, out interface{}) error {
	if kf.Path == "" {
		return &KernelNotFoundError{Category: kf.Category}
	}

	contents, err := os.ReadFile(kf.Path)
	if os.IsNotExist(err) {
		return &KernelNotFoundError{Category: kf.Category, Path: kf.Path}
	} else if err != nil {
		return &KernelLoadError{Category: kf.Category, Path: kf.Path, Err: err}
	}

	hdr := kernelHeader{}
	if err := yaml.Unmarshal(contents, &hdr); err != nil {
		return &KernelLoadError{Category: kf.Category, Path: kf.Path, Err: err}
	} else if hdr.Kernel != string(kf.Category) {
		return &KernelLoadError{Category: kf.Category, Path: kf.Path,
			Err: fmt.Errorf("file is tagged as kernel '%s'", hdr.Kernel)}
	}

	if err := yaml.UnmarshalStrict(contents, out); err != nil {
		return &KernelLoadError{Category: kf.Category, Path: kf.Path, Err: err}
	}

	return nil
}

func vec3From(vals []float64, what string) ([3]float64, error) {
	if len(vals) != 3 {
		return [3]float64{}, fmt.Errorf("%s: want 3 values, got %d", what, len(vals))
	}
	return [3]float64{vals[0], vals[1], vals[2]}, nil
}
