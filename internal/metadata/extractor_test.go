package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/photo-pipeline/internal/testutil"
)

var (
	latDMS = testutil.DMS{{40, 1}, {26, 1}, {463, 10}} // 40° 26' 46.3"
	lngDMS = testutil.DMS{{79, 1}, {58, 1}, {56, 1}}   // 79° 58' 56"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"exif layout", "2024:03:15 10:30:00", "2024-03-15T10:30:00Z", true},
		{"trailing nul", "2024:03:15 10:30:00\x00", "2024-03-15T10:30:00Z", true},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FormatTimestamp(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDMSToDecimal(t *testing.T) {
	dms := [3]Rational{{40, 1}, {26, 1}, {463, 10}}

	north, err := DMSToDecimal(dms, "N")
	require.NoError(t, err)
	assert.InDelta(t, 40.446194, north, 1e-4)

	south, err := DMSToDecimal(dms, "S")
	require.NoError(t, err)
	assert.InDelta(t, -40.446194, south, 1e-4)

	west, err := DMSToDecimal(dms, "W")
	require.NoError(t, err)
	assert.Less(t, west, 0.0)
}

func TestDMSToDecimal_Malformed(t *testing.T) {
	_, err := DMSToDecimal([3]Rational{{40, 1}, {26, 0}, {0, 1}}, "N")
	assert.ErrorIs(t, err, ErrMalformedGPS)

	_, err = DMSToDecimal([3]Rational{{40, 1}, {26, 1}, {0, 1}}, "X")
	assert.ErrorIs(t, err, ErrMalformedGPS)

	_, err = DMSToDecimal([3]Rational{{40, 1}, {26, 1}, {0, 1}}, "")
	assert.ErrorIs(t, err, ErrMalformedGPS)
}

func TestExtract_FullMetadata(t *testing.T) {
	data := testutil.JPEGWithExif(64, 48, testutil.Exif{
		DateTime:         "2023:01:01 00:00:00",
		DateTimeOriginal: "2024:03:15 10:30:00",
		LatRef:           "N",
		Lat:              &latDMS,
		LngRef:           "W",
		Lng:              &lngDMS,
	})

	md := New().Extract(data)

	require.NotNil(t, md.TakenAt)
	assert.Equal(t, "2024-03-15T10:30:00Z", *md.TakenAt)

	require.NotNil(t, md.GPSLat)
	require.NotNil(t, md.GPSLng)
	assert.InDelta(t, 40.446194, *md.GPSLat, 1e-4)
	assert.InDelta(t, -79.982222, *md.GPSLng, 1e-4)
}

func TestExtract_TimestampFallbackOrder(t *testing.T) {
	digitized := testutil.JPEGWithExif(16, 16, testutil.Exif{
		DateTime:          "2020:05:05 05:05:05",
		DateTimeDigitized: "2021:06:06 06:06:06",
	})
	md := New().Extract(digitized)
	require.NotNil(t, md.TakenAt)
	assert.Equal(t, "2021-06-06T06:06:06Z", *md.TakenAt)

	generic := testutil.JPEGWithExif(16, 16, testutil.Exif{DateTime: "2020:05:05 05:05:05"})
	md = New().Extract(generic)
	require.NotNil(t, md.TakenAt)
	assert.Equal(t, "2020-05-05T05:05:05Z", *md.TakenAt)
}

func TestExtract_MissingRefDropsBothCoordinates(t *testing.T) {
	data := testutil.JPEGWithExif(16, 16, testutil.Exif{
		DateTimeOriginal: "2024:03:15 10:30:00",
		LatRef:           "N",
		Lat:              &latDMS,
		Lng:              &lngDMS, // no longitude reference
	})

	md := New().Extract(data)

	assert.Nil(t, md.GPSLat)
	assert.Nil(t, md.GPSLng)
	require.NotNil(t, md.TakenAt, "gps failure must not block the timestamp")
	assert.Equal(t, "2024-03-15T10:30:00Z", *md.TakenAt)
}

func TestExtract_GPSWithoutTimestamp(t *testing.T) {
	data := testutil.JPEGWithExif(16, 16, testutil.Exif{
		LatRef: "S",
		Lat:    &latDMS,
		LngRef: "E",
		Lng:    &lngDMS,
	})

	md := New().Extract(data)

	assert.Nil(t, md.TakenAt)
	require.NotNil(t, md.GPSLat)
	assert.InDelta(t, -40.446194, *md.GPSLat, 1e-4)
	assert.InDelta(t, 79.982222, *md.GPSLng, 1e-4)
}

func TestExtract_NoMetadata(t *testing.T) {
	for name, data := range map[string][]byte{
		"plain jpeg": testutil.JPEG(32, 32),
		"png":        testutil.PNG(testutil.Image(8, 8)),
		"garbage":    []byte("definitely not an image"),
		"empty":      nil,
	} {
		t.Run(name, func(t *testing.T) {
			md := New().Extract(data)
			assert.Nil(t, md.TakenAt)
			assert.Nil(t, md.GPSLat)
			assert.Nil(t, md.GPSLng)
		})
	}
}
