package pushframe

import (
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A TimeConverter turns clock readings into ephemeris time. An
// *ephem.Provider is one.
type TimeConverter interface {
	UTCToET(t time.Time) (float64, error)
	SCLKToET(ticks float64) (float64, error)
}

// JunoCam raw products are named like JNCE_2022056_40C00036_V01-raw.png:
// year, day of year, then the spacecraft clock count in hex.
var junoCamFilenameRegexp = regexp.MustCompile(`^JNCE_(\d{4})(\d{3})_([0-9A-Fa-f]+)_V\d+`)

// ResolveCaptureStart works out the ephemeris time at which the raw image
// started being read out. In order of preference:
//   - `override`, if set: an RFC3339 UTC time, `et:<seconds>`, or
//     `sclk:<hex ticks>`
//   - a JunoCam-style filename; its clock count, or failing that its date
//     at midnight UTC
//   - the image's EXIF DateTime
func ResolveCaptureStart(override string, raw *RawImage, tc TimeConverter) (float64, error) {
	if override != "" {
		et, err := parseCaptureStart(override, tc)
		if err != nil {
			return 0, configErrorf("capturestart", "'%s': %v", override, err)
		}
		return et, nil
	}

	if raw != nil {
		if et, ok := captureStartFromFilename(raw.Filename, tc); ok {
			return et, nil
		}
		if !raw.DateTime.IsZero() {
			et, err := tc.UTCToET(raw.DateTime)
			if err != nil {
				return 0, configErrorf("capturestart", "EXIF DateTime %s: %v", raw.DateTime.Format(time.RFC3339), err)
			}
			log.Printf("Capture start taken from EXIF DateTime %s\n", raw.DateTime.Format(time.RFC3339))
			return et, nil
		}
	}

	return 0, configErrorf("capturestart", "not configured, and the input file gives no clue")
}

func parseCaptureStart(s string, tc TimeConverter) (float64, error) {
	switch {
	case strings.HasPrefix(s, "et:"):
		return strconv.ParseFloat(strings.TrimPrefix(s, "et:"), 64)

	case strings.HasPrefix(s, "sclk:"):
		ticks, err := strconv.ParseUint(strings.TrimPrefix(s, "sclk:"), 16, 64)
		if err != nil {
			return 0, err
		}
		return tc.SCLKToET(float64(ticks))

	default:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, err
		}
		return tc.UTCToET(t)
	}
}

func captureStartFromFilename(filename string, tc TimeConverter) (float64, bool) {
	m := junoCamFilenameRegexp.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return 0, false
	}

	if ticks, err := strconv.ParseUint(m[3], 16, 64); err == nil {
		et, err := tc.SCLKToET(float64(ticks))
		if err == nil {
			log.Printf("Capture start from filename clock count %s: ET %.3f\n", m[3], et)
			return et, true
		}
		log.Printf("Converting clock count %s: %v; falling back to file date\n", m[3], err)
	}

	year, _ := strconv.Atoi(m[1])
	doy, _ := strconv.Atoi(m[2])
	day := time.Date(year, time.January, doy, 0, 0, 0, 0, time.UTC)
	et, err := tc.UTCToET(day)
	if err != nil {
		log.Printf("Converting file date %s: %v\n", day.Format("2006-01-02"), err)
		return 0, false
	}

	log.Printf("Capture start from filename date %s: ET %.3f\n", day.Format("2006-01-02"), et)
	return et, true
}
