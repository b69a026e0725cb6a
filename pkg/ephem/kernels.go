package ephem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// A Category is one of the kinds of kernel a processing run needs.
type Category string

const (
	LeapSeconds        Category = "lsk"
	PlanetaryConstants Category = "pck"
	Frames             Category = "fk"
	Instrument         Category = "ik"
	SpacecraftClock    Category = "sclk"
	Trajectory         Category = "spk"
	Orientation        Category = "ck"
)

// Categories lists every kernel category, in the order they get loaded.
// Time kernels come first, then the static geometry, then the
// time-varying data.
var Categories = []Category{
	LeapSeconds, PlanetaryConstants, Frames, Instrument, SpacecraftClock, Trajectory, Orientation,
}

var categoryDescriptions = map[Category]string{
	LeapSeconds:        "Leapseconds",
	PlanetaryConstants: "Planetary Constants",
	Frames:             "Frames",
	Instrument:         "Instrument",
	SpacecraftClock:    "Spacecraft Clock",
	Trajectory:         "Spacecraft Position",
	Orientation:        "Spacecraft Orientation",
}

func (c Category) Description() string { return categoryDescriptions[c] }

/* Example kernels section of a config file ...

kernels:
  dir: kernels
  leapseconds: lsk/naif0012.yaml
  planetaryconstants: pck/pck00011.yaml
  frames: fk/juno_v12.yaml
  instrument: ik/juno_junocam_v03.yaml
  spacecraftclock: sclk/jno_sclkscet_00120.yaml
  trajectory:
  - spk/juno_rec_220101_220401.yaml
  orientation:
  - ck/juno_rec_220220_220227.yaml

*/

// A KernelSet names the files that make up one run's kernel pool. Relative
// paths are resolved against Dir.
type KernelSet struct {
	Dir                string
	LeapSeconds        string
	PlanetaryConstants string
	Frames             string
	Instrument         string
	SpacecraftClock    string
	Trajectory         []string
	Orientation        []string
}

// A KernelFile is one resolved entry of a KernelSet.
type KernelFile struct {
	Category Category
	Path     string
}

func (ks KernelSet) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || ks.Dir == "" {
		return p
	}
	return filepath.Join(ks.Dir, p)
}

// Files flattens the set into load order. A category with nothing
// configured shows up as a single entry with an empty path, so that Load
// can report it as missing.
func (ks KernelSet) Files() []KernelFile {
	files := []KernelFile{}
	single := func(c Category, p string) {
		files = append(files, KernelFile{c, ks.resolve(p)})
	}
	multi := func(c Category, ps []string) {
		if len(ps) == 0 {
			files = append(files, KernelFile{Category: c})
		}
		for _, p := range ps {
			files = append(files, KernelFile{c, ks.resolve(p)})
		}
	}

	single(LeapSeconds, ks.LeapSeconds)
	single(PlanetaryConstants, ks.PlanetaryConstants)
	single(Frames, ks.Frames)
	single(Instrument, ks.Instrument)
	single(SpacecraftClock, ks.SpacecraftClock)
	multi(Trajectory, ks.Trajectory)
	multi(Orientation, ks.Orientation)

	return files
}

// An InventoryEntry is a file found under one of the category directories.
type InventoryEntry struct {
	Category Category
	Path     string
	Size     int64
}

// Inventory lists the files under dir/<category> for every category. A
// missing category directory is not an error; it just contributes nothing.
func Inventory(dir string) (map[Category][]InventoryEntry, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("inventory '%s': %v", dir, err)
	}

	inv := map[Category][]InventoryEntry{}
	for _, c := range Categories {
		contents, err := os.ReadDir(filepath.Join(dir, string(c)))
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("inventory '%s': %v", dir, err)
		}

		for _, content := range contents {
			if content.IsDir() {
				continue
			}
			info, err := content.Info()
			if err != nil {
				return nil, fmt.Errorf("inventory '%s': %v", content.Name(), err)
			}
			inv[c] = append(inv[c], InventoryEntry{
				Category: c,
				Path:     filepath.Join(dir, string(c), content.Name()),
				Size:     info.Size(),
			})
		}
		sort.Slice(inv[c], func(i, j int) bool { return inv[c][i].Path < inv[c][j].Path })
	}

	return inv, nil
}

// SetFromInventory builds a KernelSet that uses every file found in the
// inventory, taking the last (by name) static kernel of each category.
// Handy when a kernel directory has been laid out by hand.
func SetFromInventory(inv map[Category][]InventoryEntry) KernelSet {
	last := func(c Category) string {
		if n := len(inv[c]); n > 0 {
			return inv[c][n-1].Path
		}
		return ""
	}
	all := func(c Category) []string {
		paths := []string{}
		for _, e := range inv[c] {
			paths = append(paths, e.Path)
		}
		return paths
	}

	return KernelSet{
		LeapSeconds:        last(LeapSeconds),
		PlanetaryConstants: last(PlanetaryConstants),
		Frames:             last(Frames),
		Instrument:         last(Instrument),
		SpacecraftClock:    last(SpacecraftClock),
		Trajectory:         all(Trajectory),
		Orientation:        all(Orientation),
	}
}
