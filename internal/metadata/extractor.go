package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/photo-pipeline/internal/model"
)

var (
	// ErrMalformedGPS is returned when a GPS coordinate cannot be converted.
	ErrMalformedGPS = errors.New("malformed gps coordinate")

	// timestampFields lists the EXIF date fields in priority order.
	timestampFields = []exif.FieldName{
		exif.DateTimeOriginal,
		exif.DateTimeDigitized,
		exif.DateTime,
	}
)

// Rational is an unsigned EXIF rational number.
type Rational struct {
	Num int64
	Den int64
}

// Extractor reads capture metadata (timestamp, GPS) embedded in an image.
type Extractor struct{}

// New creates a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses the embedded EXIF block of data.
//
// It never fails: every field that is missing or malformed is left nil.
// The timestamp and the GPS pair are parsed independently of each other.
func (e *Extractor) Extract(data []byte) model.Metadata {
	var md model.Metadata

	x := decode(data)
	if x == nil {
		return md
	}

	if ts, ok := takenAt(x); ok {
		md.TakenAt = &ts
	}

	if lat, lng, ok := latLong(x); ok {
		md.GPSLat = &lat
		md.GPSLng = &lng
	}

	return md
}

// decode returns the decoded EXIF structure or nil when none is usable.
// A partially decoded structure is kept so that intact directories still
// contribute their fields.
func decode(data []byte) (x *exif.Exif) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Debug().Msgf("exif decoder panicked: %v", r)
			x = nil
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		if x == nil {
			zlog.Logger.Debug().Err(err).Msg("no exif metadata available")
			return nil
		}
		zlog.Logger.Debug().Err(err).Msg("exif metadata partially decoded")
	}

	return x
}

// takenAt returns the first non-empty date field converted to ISO-8601.
func takenAt(x *exif.Exif) (string, bool) {
	for _, field := range timestampFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}

		val, err := tag.StringVal()
		if err != nil {
			zlog.Logger.Debug().Err(err).Str("field", string(field)).Msg("unreadable exif date")
			continue
		}

		if ts, ok := FormatTimestamp(val); ok {
			return ts, true
		}
	}

	return "", false
}

// latLong returns the signed decimal coordinates or ok=false when any part
// of the GPS block is missing or malformed.
func latLong(x *exif.Exif) (lat, lng float64, ok bool) {
	lat, err := coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		zlog.Logger.Debug().Err(err).Msg("gps latitude unavailable")
		return 0, 0, false
	}

	lng, err = coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		zlog.Logger.Debug().Err(err).Msg("gps longitude unavailable")
		return 0, 0, false
	}

	return lat, lng, true
}

func coordinate(x *exif.Exif, valueField, refField exif.FieldName) (float64, error) {
	valueTag, err := x.Get(valueField)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", valueField, err)
	}

	dms, err := rationals(valueTag)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", valueField, err)
	}

	refTag, err := x.Get(refField)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", refField, err)
	}

	ref, err := refTag.StringVal()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", refField, err)
	}

	return DMSToDecimal(dms, ref)
}

func rationals(tag *tiff.Tag) ([3]Rational, error) {
	var dms [3]Rational

	if tag.Count < 3 {
		return dms, fmt.Errorf("%w: expected 3 rationals, got %d", ErrMalformedGPS, tag.Count)
	}

	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, fmt.Errorf("%w: %v", ErrMalformedGPS, err)
		}
		dms[i] = Rational{Num: num, Den: den}
	}

	return dms, nil
}

// FormatTimestamp converts an EXIF "YYYY:MM:DD HH:MM:SS" value into
// "YYYY-MM-DDTHH:MM:SSZ" by literal substitution.
//
// No timezone conversion is performed: the embedded value is labelled UTC as is.
func FormatTimestamp(val string) (string, bool) {
	val = strings.TrimSpace(strings.Trim(val, "\x00"))
	if val == "" {
		return "", false
	}

	val = strings.Replace(val, ":", "-", 2)
	val = strings.Replace(val, " ", "T", 1)

	return val + "Z", true
}

// DMSToDecimal converts a degrees/minutes/seconds triple into signed decimal
// degrees. The result is negative for the "S" and "W" references.
func DMSToDecimal(dms [3]Rational, ref string) (float64, error) {
	var parts [3]float64
	for i, r := range dms {
		if r.Den == 0 {
			return 0, fmt.Errorf("%w: zero denominator", ErrMalformedGPS)
		}
		parts[i] = float64(r.Num) / float64(r.Den)
	}

	deg := parts[0] + parts[1]/60.0 + parts[2]/3600.0

	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "N", "E":
		return deg, nil
	case "S", "W":
		return -deg, nil
	default:
		return 0, fmt.Errorf("%w: unknown reference %q", ErrMalformedGPS, ref)
	}
}
