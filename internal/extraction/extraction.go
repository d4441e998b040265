package extraction

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata carries the coordinates and capture time recovered from an
// image's embedded EXIF tags. Absent values stay nil; zero is a valid
// coordinate and is never used as a missing-value sentinel.
type Metadata struct {
	Latitude  *float64
	Longitude *float64
	TakenAt   *time.Time
}

// HasCoordinates reports whether both GPS coordinates were recovered.
func (m Metadata) HasCoordinates() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// exifMimeTypes are the content types EXIF decoding is attempted for.
var exifMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/tiff": true,
}

// SupportsMimeType checks if a content type can carry EXIF tags we decode.
func SupportsMimeType(mimeType string) bool {
	return exifMimeTypes[mimeType]
}

// Extract decodes EXIF GPS and capture-time tags from raw image bytes.
// Unsupported content types and malformed data return an empty Metadata;
// the error is returned for logging only and callers must not treat it as
// a failure of the file being processed.
func Extract(data []byte, mimeType string) (Metadata, error) {
	var meta Metadata
	if !SupportsMimeType(mimeType) {
		return meta, nil
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return meta, err
	}

	if lat, lng, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &lng
	}

	// DateTime prefers the DateTimeOriginal tag and falls back to DateTime.
	if taken, err := x.DateTime(); err == nil {
		meta.TakenAt = &taken
	}

	return meta, nil
}
