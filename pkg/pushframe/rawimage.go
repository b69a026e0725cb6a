package pushframe

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/pushframe/pkg/emath"
)

// A RawImage is the camera's interleaved output: a single grayscale plane
// of stacked frames, each frame a Blue, Green and Red strip.
type RawImage struct {
	Filename string
	BitDepth int             // significant bits per pixel value
	Pix      emath.FloatGrid // raw values, 0 .. 2^BitDepth-1
	DateTime time.Time       // from EXIF, if the file had any
}

func NewRawImage(w, h, bitDepth int) *RawImage {
	return &RawImage{
		BitDepth: bitDepth,
		Pix:      emath.NewFloatGrid(w, h),
	}
}

func (r *RawImage) Dx() int { return r.Pix.Dx() }
func (r *RawImage) Dy() int { return r.Pix.Dy() }

// MaxValue is the largest value a pixel can hold at the image's bit depth.
func (r *RawImage) MaxValue() float64 { return maxForDepth(r.BitDepth) }

func (r *RawImage) String() string {
	return fmt.Sprintf("RawImage[%s %dx%d, %d-bit]", filepath.Base(r.Filename), r.Dx(), r.Dy(), r.BitDepth)
}

func maxForDepth(bitDepth int) float64 { return math.Pow(2, float64(bitDepth)) - 1 }

func validBitDepth(bitDepth int) bool { return bitDepth >= 1 && bitDepth <= 16 }

// RawImageFromImage converts a decoded image into a RawImage. Colour
// images are reduced to gray. If bitDepth is zero it comes from the pixel
// format: 8 for 8-bit formats, otherwise 16.
func RawImageFromImage(img image.Image, bitDepth int) (*RawImage, error) {
	detected := 16
	switch img.(type) {
	case *image.Gray, *image.Paletted, *image.RGBA, *image.NRGBA, *image.YCbCr:
		detected = 8
	}

	if bitDepth == 0 {
		bitDepth = detected
	} else if !validBitDepth(bitDepth) {
		return nil, configErrorf("sourcebitdepth", "must be between 1 and 16, got %d", bitDepth)
	}

	b := img.Bounds()
	raw := NewRawImage(b.Dx(), b.Dy(), bitDepth)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := raw.Pix.Row(y - b.Min.Y)
		for x := b.Min.X; x < b.Max.X; x++ {
			if detected == 8 {
				row[x-b.Min.X] = float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			} else {
				row[x-b.Min.X] = float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
			}
		}
	}

	return raw, nil
}

// LoadRawImage reads a PNG or TIFF raw image. For TIFFs, the EXIF
// DateTime is picked up if present; its absence is not an error.
func LoadRawImage(filename string, bitDepth int) (*RawImage, error) {
	var img image.Image
	var dateTime time.Time

	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		if img, err = png.Decode(reader); err != nil {
			return nil, fmt.Errorf("png loading '%s': %v", filename, err)
		}

	case ".tif", ".tiff":
		if img, err = tiff.Decode(reader); err != nil {
			return nil, fmt.Errorf("tiff loading '%s': %v", filename, err)
		}
		dateTime = exifDateTime(filename)

	default:
		return nil, configErrorf("input", "'%s' is neither PNG nor TIFF", filename)
	}

	raw, err := RawImageFromImage(img, bitDepth)
	if err != nil {
		return nil, err
	}
	raw.Filename = filename
	raw.DateTime = dateTime

	return raw, nil
}

func exifDateTime(filename string) time.Time {
	reader, err := os.Open(filename)
	if err != nil {
		return time.Time{}
	}
	defer reader.Close()

	if ex, err := exif.Decode(reader); err != nil {
		return time.Time{}
	} else if t, err := ex.DateTime(); err != nil {
		return time.Time{}
	} else {
		// EXIF times carry no zone; spacecraft clocks are kept in UTC
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	}
}
