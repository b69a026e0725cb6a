package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/abworrall/pushframe/pkg/ephem"
	"github.com/abworrall/pushframe/pkg/pushframe"
)

var (
	fConfig        string
	fVerbosity     int
	fOutputDir     string
	fOutputFormat  string
	fBandHeight    int
	fCaptureStart  string
	fNormalization string
	fWorkers       int
	fWriteHDR      bool
	fPreviewWidth  int
	fShiftMap      bool
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file (geometry, kernels, outputs)")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fOutputDir, "o", "", "directory to write outputs into")
	flag.StringVar(&fOutputFormat, "format", "", "output image format: png or tiff")
	flag.IntVar(&fBandHeight, "bandheight", 0, "rows per channel strip")
	flag.StringVar(&fCaptureStart, "capturestart", "", "capture start: RFC3339 UTC, et:<seconds>, or sclk:<hex>")
	flag.StringVar(&fNormalization, "normalization", "", "how to scale to the output bit depth: depth or minmax")
	flag.IntVar(&fWorkers, "workers", 0, "goroutines for offsets and compositing (0 = one per CPU)")
	flag.BoolVar(&fWriteHDR, "hdr", false, "also write the linear composite as a .hdr file")
	flag.IntVar(&fPreviewWidth, "preview", 0, "if >0, also write a preview of the composite this many pixels wide")
	flag.BoolVar(&fShiftMap, "shiftmap", false, "also write an image of the per-frame shifts")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] JNCE_...-raw.png\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.Printf("pushframe starting\n")
}

func main() {
	if err := run(); err != nil {
		log.Printf("pushframe failed: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (pushframe.Config, error) {
	cfg := pushframe.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = pushframe.LoadConfig(fConfig); err != nil {
			return cfg, err
		}
		log.Printf("Loaded base configuration from %s\n", fConfig)
	}

	// Override the config file with command line args, if relevant
	if fVerbosity > 0 {
		cfg.Verbosity = fVerbosity
	}
	if fOutputDir != "" {
		cfg.OutputDir = fOutputDir
	}
	if fOutputFormat != "" {
		cfg.OutputFormat = fOutputFormat
	}
	if fBandHeight > 0 {
		cfg.Geometry.BandHeight = fBandHeight
	}
	if fCaptureStart != "" {
		cfg.CaptureStart = fCaptureStart
	}
	if fNormalization != "" {
		cfg.Normalization = pushframe.Normalization(fNormalization)
	}
	if fWorkers > 0 {
		cfg.Workers = fWorkers
	}
	if fPreviewWidth > 0 {
		cfg.PreviewWidth = fPreviewWidth
	}

	// Just set the bool vars, if turned on
	cfg.WriteHDR = cfg.WriteHDR || fWriteHDR
	cfg.ShiftMap = cfg.ShiftMap || fShiftMap

	return cfg, cfg.Validate()
}

// run does the whole job. The kernels are released on every path out.
func run() error {
	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("want exactly one raw image, got %d args", flag.NArg())
	}
	inputFile := flag.Arg(0)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eph, err := ephem.Load(cfg.Kernels)
	if err != nil {
		return err
	}
	defer eph.Unload()

	instrument := eph.Instrument()
	cfg.Geometry = cfg.Geometry.FillFromInstrument(instrument)
	if err := cfg.Geometry.Validate(); err != nil {
		return err
	}

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	raw, err := pushframe.LoadRawImage(inputFile, cfg.SourceBitDepth)
	if err != nil {
		return err
	}
	log.Printf("Loaded %s\n", raw)

	start, err := pushframe.ResolveCaptureStart(cfg.CaptureStart, raw, eph)
	if err != nil {
		return err
	}
	if utc, err := eph.ETToUTC(start); err == nil {
		log.Printf("Capture start: ET %.3f (%s)\n", start, utc.Format(time.RFC3339Nano))
	}

	proc := pushframe.Processor{
		Geometry:   cfg.Geometry,
		Provider:   eph,
		Boresight:  instrument.Boresight,
		Compositor: cfg.Compositor(raw.BitDepth),
		Verbosity:  cfg.Verbosity,
		DebugDir:   cfg.OutputDir,
	}

	res, err := proc.Process(raw, start)
	if err != nil {
		return err
	}

	if _, err := pushframe.WriteOutputs(cfg, res.Mosaics); err != nil {
		return err
	}

	if cfg.ShiftMap && len(res.Shifts) > 0 {
		filename := filepath.Join(cfg.OutputDir, "shiftmap.png")
		if err := pushframe.ShiftMapImage(res.Shifts, res.Gaps, filename); err != nil {
			return err
		}
		log.Printf("Wrote %s\n", filename)
	}

	log.Printf("Done: %d of %d frames realigned, %d coverage gaps\n", res.UsableFrames, res.NumFrames, len(res.Gaps))
	return nil
}
