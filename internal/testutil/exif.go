// Package testutil builds synthetic images for package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// TIFF field types.
const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// TIFF tags used by the builder.
const (
	tagOrientation      = 0x0112
	tagDateTime         = 0x0132
	tagExifIFDPointer   = 0x8769
	tagGPSInfoPointer   = 0x8825
	tagDateTimeOriginal = 0x9003
	tagDateTimeDigitize = 0x9004
	tagGPSLatitudeRef   = 0x0001
	tagGPSLatitude      = 0x0002
	tagGPSLongitudeRef  = 0x0003
	tagGPSLongitude     = 0x0004
)

// DMS is a degrees/minutes/seconds triple of rationals {num, den}.
type DMS [3][2]uint32

// Exif describes the fields written into a synthetic EXIF block.
// Empty strings and nil coordinates are omitted.
type Exif struct {
	// Orientation is written as a SHORT when non-zero. Values outside
	// 1-8 produce a tag readers must ignore.
	Orientation uint16

	DateTime          string
	DateTimeOriginal  string
	DateTimeDigitized string

	LatRef string
	Lat    *DMS
	LngRef string
	Lng    *DMS
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Image returns a w x h image filled with a horizontal gradient.
func Image(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

// JPEG encodes a w x h image as JPEG without any metadata.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG encodes img as PNG.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEGWithExif encodes a w x h JPEG carrying an APP1 EXIF segment built from e.
func JPEGWithExif(w, h int, e Exif) []byte {
	plain := JPEG(w, h)
	tiff := e.tiff()

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(2+6+len(tiff)))
	buf.WriteString("Exif\x00\x00")
	buf.Write(tiff)
	buf.Write(plain[2:]) // skip SOI of the plain image

	return buf.Bytes()
}

func (e Exif) tiff() []byte {
	var exifIFD, gpsIFD []entry

	if e.DateTimeOriginal != "" {
		exifIFD = append(exifIFD, ascii(tagDateTimeOriginal, e.DateTimeOriginal))
	}
	if e.DateTimeDigitized != "" {
		exifIFD = append(exifIFD, ascii(tagDateTimeDigitize, e.DateTimeDigitized))
	}

	if e.LatRef != "" {
		gpsIFD = append(gpsIFD, ascii(tagGPSLatitudeRef, e.LatRef))
	}
	if e.Lat != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSLatitude, *e.Lat))
	}
	if e.LngRef != "" {
		gpsIFD = append(gpsIFD, ascii(tagGPSLongitudeRef, e.LngRef))
	}
	if e.Lng != nil {
		gpsIFD = append(gpsIFD, rationals(tagGPSLongitude, *e.Lng))
	}

	var ifd0 []entry
	if e.Orientation != 0 {
		ifd0 = append(ifd0, short(tagOrientation, e.Orientation))
	}
	if e.DateTime != "" {
		ifd0 = append(ifd0, ascii(tagDateTime, e.DateTime))
	}
	// Pointer placeholders keep IFD0 size stable while offsets are computed.
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, long(tagExifIFDPointer, 0))
	}
	if len(gpsIFD) > 0 {
		ifd0 = append(ifd0, long(tagGPSInfoPointer, 0))
	}

	ifd0Off := uint32(8)
	exifOff := ifd0Off + ifdSize(ifd0)
	gpsOff := exifOff + ifdSize(exifIFD)

	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifIFDPointer:
			ifd0[i] = long(tagExifIFDPointer, exifOff)
		case tagGPSInfoPointer:
			ifd0[i] = long(tagGPSInfoPointer, gpsOff)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("MM")
	_ = binary.Write(&buf, binary.BigEndian, uint16(42))
	_ = binary.Write(&buf, binary.BigEndian, ifd0Off)

	writeIFD(&buf, ifd0Off, ifd0)
	if len(exifIFD) > 0 {
		writeIFD(&buf, exifOff, exifIFD)
	}
	if len(gpsIFD) > 0 {
		writeIFD(&buf, gpsOff, gpsIFD)
	}

	return buf.Bytes()
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func short(tag uint16, v uint16) entry {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, v)
	return entry{tag: tag, typ: typeShort, count: 1, data: data}
}

func long(tag uint16, v uint32) entry {
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, v)
	return entry{tag: tag, typ: typeLong, count: 1, data: data}
}

func rationals(tag uint16, dms DMS) entry {
	data := make([]byte, 0, 24)
	for _, r := range dms {
		data = binary.BigEndian.AppendUint32(data, r[0])
		data = binary.BigEndian.AppendUint32(data, r[1])
	}
	return entry{tag: tag, typ: typeRational, count: 3, data: data}
}

func padded(n int) uint32 {
	return uint32(n + n%2)
}

func ifdSize(entries []entry) uint32 {
	if len(entries) == 0 {
		return 0
	}

	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			size += padded(len(e.data))
		}
	}
	return size
}

func writeIFD(buf *bytes.Buffer, start uint32, entries []entry) {
	dataOff := start + uint32(2+12*len(entries)+4)

	_ = binary.Write(buf, binary.BigEndian, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, binary.BigEndian, e.tag)
		_ = binary.Write(buf, binary.BigEndian, e.typ)
		_ = binary.Write(buf, binary.BigEndian, e.count)

		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			buf.Write(inline)
			continue
		}

		_ = binary.Write(buf, binary.BigEndian, dataOff)
		dataOff += padded(len(e.data))
	}
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // no next IFD

	for _, e := range entries {
		if len(e.data) <= 4 {
			continue
		}
		buf.Write(e.data)
		if len(e.data)%2 == 1 {
			buf.WriteByte(0)
		}
	}
}
