package pushframe

// Writers for the mosaics and composite

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

func WriteTIFF(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate})
	}
}

// WriteHDR outputs a Radiance RGBE file, which HDR tools can load.
func WriteHDR(img hdr.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("WriteHDR, open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return rgbe.Encode(writer, img)
	}
}

// Preview scales `img` down (or up) to `width` pixels wide, keeping its
// aspect ratio.
func Preview(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || width <= 0 {
		return image.NewRGBA64(image.Rectangle{})
	}
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA64(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WriteOutputs writes the three channel mosaics and the composite into the
// configured output dir, plus whichever optional extras are turned on. It
// returns the names of the files written.
func WriteOutputs(cfg Config, m Mosaics) ([]string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("output dir '%s': %v", cfg.OutputDir, err)
	}

	written := []string{}
	write := func(img image.Image, name string) error {
		filename := filepath.Join(cfg.OutputDir, name+"."+cfg.OutputFormat)
		var err error
		if cfg.OutputFormat == "tiff" {
			err = WriteTIFF(img, filename)
		} else {
			err = WritePNG(img, filename)
		}
		if err != nil {
			return fmt.Errorf("write %s: %v", filename, err)
		}
		written = append(written, filename)
		return nil
	}

	// Image encoders reject empty images
	if m.UsableFrames == 0 {
		log.Printf("WARNING: no usable frames; the mosaics are empty, nothing written\n")
		return written, nil
	}

	for _, c := range []Channel{Red, Green, Blue} {
		if err := write(m.Channels[c].Image(), c.String()+"_channel"); err != nil {
			return written, err
		}
	}
	if err := write(m.Composite, "combined_rgb"); err != nil {
		return written, err
	}

	if cfg.WriteHDR {
		filename := filepath.Join(cfg.OutputDir, "combined_rgb.hdr")
		if err := WriteHDR(m.Composite.HDR(), filename); err != nil {
			return written, fmt.Errorf("write %s: %v", filename, err)
		}
		written = append(written, filename)
	}

	if cfg.PreviewWidth > 0 {
		filename := filepath.Join(cfg.OutputDir, "preview.png")
		if err := WritePNG(Preview(m.Composite, cfg.PreviewWidth), filename); err != nil {
			return written, fmt.Errorf("write %s: %v", filename, err)
		}
		written = append(written, filename)
	}

	for _, f := range written {
		log.Printf("Wrote %s\n", f)
	}

	return written, nil
}
