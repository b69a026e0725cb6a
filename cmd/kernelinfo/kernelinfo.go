package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abworrall/pushframe/pkg/ephem"
	"github.com/abworrall/pushframe/pkg/pushframe"
)

var (
	fDir    string
	fConfig string
	fAt     string
)

func init() {
	flag.StringVar(&fDir, "dir", "kernels", "kernel directory, with one subdir per category (lsk, pck, ...)")
	flag.StringVar(&fConfig, "config", "", "YAML config file; if set, its kernel set is loaded and checked")
	flag.StringVar(&fAt, "at", "", "RFC3339 UTC time at which to try a state query")
	flag.Parse()
}

func main() {
	if err := listInventory(fDir); err != nil {
		log.Printf("kernelinfo: %v\n", err)
	}

	var ks ephem.KernelSet
	if fConfig != "" {
		cfg, err := pushframe.LoadConfig(fConfig)
		if err != nil {
			log.Printf("kernelinfo: %v\n", err)
			os.Exit(1)
		}
		ks = cfg.Kernels
	} else {
		inv, err := ephem.Inventory(fDir)
		if err != nil {
			os.Exit(1)
		}
		ks = ephem.SetFromInventory(inv)
	}

	if err := checkKernels(ks, fAt); err != nil {
		log.Printf("kernelinfo: %v\n", err)
		os.Exit(1)
	}
}

func listInventory(dir string) error {
	inv, err := ephem.Inventory(dir)
	if err != nil {
		return err
	}

	fmt.Printf("Kernel inventory, %s\n", dir)
	for _, c := range ephem.Categories {
		fmt.Printf("\n%-4s - %s\n", c, c.Description())
		if len(inv[c]) == 0 {
			fmt.Printf("  (none)\n")
		}
		for _, e := range inv[c] {
			fmt.Printf("  %s (%.1f KB)\n", e.Path, float64(e.Size)/1024)
		}
	}
	fmt.Printf("\n")

	return nil
}

func checkKernels(ks ephem.KernelSet, at string) error {
	eph, err := ephem.Load(ks)
	if err != nil {
		return err
	}
	defer eph.Unload()

	in := eph.Instrument()
	fmt.Printf("Instrument %s (%d), frame %s\n", in.Name, in.ID, in.Frame)
	fmt.Printf("  boresight (%.4f,%.4f,%.4f), %g rad/pixel, line time %gs, frame transfer %gs\n",
		in.Boresight.X, in.Boresight.Y, in.Boresight.Z, in.PixelScale, in.LineTime, in.FrameTransferTime)

	fmt.Printf("\nCoverage\n")
	for _, w := range eph.Coverage() {
		start, _ := eph.ETToUTC(w.Start)
		stop, _ := eph.ETToUTC(w.Stop)
		fmt.Printf("  %-4s %s .. %s  %s\n", w.Category, start.Format(time.RFC3339), stop.Format(time.RFC3339), w.Path)
	}

	if at == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return fmt.Errorf("parsing -at '%s': %v", at, err)
	}
	et, err := eph.UTCToET(t)
	if err != nil {
		return err
	}

	fmt.Printf("\nAt %s (ET %.3f)\n", t.Format(time.RFC3339Nano), et)
	st, err := eph.StateAt(et)
	if ephem.IsOutOfCoverage(err) {
		fmt.Printf("  no coverage: %v\n", err)
		return nil
	} else if err != nil {
		return err
	}

	fmt.Printf("  %s\n", st)
	b := st.Pointing(in.Boresight)
	fmt.Printf("  boresight points at (%.5f,%.5f,%.5f) in %s\n", b.X, b.Y, b.Z, st.Frame)

	return nil
}
