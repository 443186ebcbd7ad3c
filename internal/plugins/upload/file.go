package upload

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is a selected file held in memory.
type File struct {
	Name string
	MIME string
	Data []byte
}

// NewFile wraps data and sniffs its media type from content. The declared
// browser type is ignored.
func NewFile(name string, data []byte) File {
	return File{
		Name: filepath.Base(name),
		MIME: DetectMedia(data),
		Data: data,
	}
}

// Size returns the file size in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// IsImage reports whether the sniffed type is an image.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MIME, "image/")
}

// IsVideo reports whether the sniffed type is a video.
func (f File) IsVideo() bool {
	return strings.HasPrefix(f.MIME, "video/")
}

// compressibleTypes are raster formats the compressor can decode. GIFs are
// left alone so animations survive; SVG is not raster.
var compressibleTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Compressible reports whether the compressor should try this file.
func (f File) Compressible() bool {
	return compressibleTypes[f.MIME]
}

// MediaType is the hero slider media_type value for the file.
func (f File) MediaType() string {
	if f.IsVideo() {
		return "video"
	}
	return "image"
}

// DetectMedia sniffs the MIME type of data without parameters.
func DetectMedia(data []byte) string {
	mt := mimetype.Detect(data)
	mime := mt.String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// IsLogoFormat reports whether data is a PNG or SVG image.
func IsLogoFormat(data []byte) bool {
	mt := mimetype.Detect(data)
	return mt.Is("image/png") || mt.Is("image/svg+xml")
}
