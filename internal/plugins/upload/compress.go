package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	// Register the WebP decoder with image.Decode, which imaging uses.
	_ "golang.org/x/image/webp"
)

// CompressOptions bounds the compressed output.
type CompressOptions struct {
	// MaxSizeMB is the target size of the output.
	MaxSizeMB float64

	// MaxDimension bounds the longer edge in pixels.
	MaxDimension int

	// Quality is the initial encoder quality in (0, 1].
	Quality float64
}

// DefaultCompressOptions returns 2 MB, 1920 px, quality 0.90.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{MaxSizeMB: 2, MaxDimension: 1920, Quality: 0.90}
}

// merge fills zero fields of o from def.
func (o CompressOptions) merge(def CompressOptions) CompressOptions {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = def.MaxSizeMB
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = def.MaxDimension
	}
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = def.Quality
	}
	return o
}

func (o CompressOptions) maxBytes() int64 {
	return int64(o.MaxSizeMB * 1024 * 1024)
}

// Encoder tuning. Quality drops in steps down to minJPEGQuality; when that
// is not enough the image is scaled down by scaleStep, at most maxScales
// times.
const (
	qualityStep    = 10
	minJPEGQuality = 40
	scaleStep      = 0.8
	maxScales      = 5
)

// Compressed is the outcome of a compression. File is always usable: on
// failure it is the original and Err says why.
type Compressed struct {
	File         File
	OriginalSize int64
	Savings      int
	FellBack     bool
	Err          error
}

// Report summarises c for status views.
func (c Compressed) Report() *CompressionReport {
	return &CompressionReport{
		OriginalSize: c.OriginalSize,
		Size:         c.File.Size(),
		Savings:      c.Savings,
		FellBack:     c.FellBack,
	}
}

// Compressor resizes and re-encodes images to fit size and dimension
// ceilings.
type Compressor struct {
	opts CompressOptions
}

// NewCompressor creates a compressor with default options opts.
func NewCompressor(opts CompressOptions) *Compressor {
	return &Compressor{opts: opts.merge(DefaultCompressOptions())}
}

// Options returns the default options.
func (c *Compressor) Options() CompressOptions {
	return c.opts
}

// Compress shrinks f. It never fails: any decode or encode error, or a
// cancelled ctx, returns the original with FellBack set. An output that is
// not smaller than the input also returns the original, without FellBack.
// override may be nil.
func (c *Compressor) Compress(ctx context.Context, f File, override *CompressOptions) Compressed {
	opts := c.opts
	if override != nil {
		opts = override.merge(c.opts)
	}

	out, err := compress(ctx, f, opts)
	if err != nil {
		return Compressed{File: f, OriginalSize: f.Size(), FellBack: true, Err: err}
	}
	if out.Size() >= f.Size() {
		return Compressed{File: f, OriginalSize: f.Size()}
	}
	return Compressed{
		File:         out,
		OriginalSize: f.Size(),
		Savings:      CalculateSavings(f.Size(), out.Size()),
	}
}

func compress(ctx context.Context, f File, opts CompressOptions) (File, error) {
	if !f.Compressible() {
		return File{}, fmt.Errorf("unsupported image type %q", f.MIME)
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return File{}, fmt.Errorf("decoding image: %w", err)
	}

	img = fit(img, opts.MaxDimension)
	keepPNG := f.MIME == "image/png" && !opaque(img)
	limit := opts.maxBytes()

	for scale := 0; scale <= maxScales; scale++ {
		if err := ctx.Err(); err != nil {
			return File{}, err
		}

		var data []byte
		if keepPNG {
			data, err = encodePNG(img)
		} else {
			data, err = encodeJPEG(ctx, img, opts.Quality, limit)
		}
		if err != nil {
			return File{}, err
		}
		if int64(len(data)) <= limit || scale == maxScales {
			return outputFile(f, data, keepPNG), nil
		}

		b := img.Bounds()
		img = imaging.Resize(img, int(float64(b.Dx())*scaleStep), 0, imaging.Lanczos)
	}
	return File{}, fmt.Errorf("compression did not converge")
}

// fit scales img down so its longer edge is at most maxDim.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
}

// opaque reports whether img has no transparent pixels.
func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// encodeJPEG lowers quality from the initial value until the output fits
// limit or the floor is reached, returning the last encoding.
func encodeJPEG(ctx context.Context, img image.Image, quality float64, limit int64) ([]byte, error) {
	q := int(math.Round(quality * 100))
	var buf bytes.Buffer
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
		if int64(buf.Len()) <= limit || q <= minJPEGQuality {
			return buf.Bytes(), nil
		}
		q = max(q-qualityStep, minJPEGQuality)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// outputFile names the compressed output after the original, switching the
// extension when the format changed.
func outputFile(orig File, data []byte, isPNG bool) File {
	mime, ext := "image/jpeg", ".jpg"
	if isPNG {
		mime, ext = "image/png", ".png"
	}
	base := strings.TrimSuffix(orig.Name, filepath.Ext(orig.Name))
	if base == "" {
		base = "image"
	}
	return File{Name: base + ext, MIME: mime, Data: data}
}

// CalculateSavings returns round((1 - compressed/original) * 100), or 0
// when original is 0 or nothing was saved.
func CalculateSavings(originalSize, compressedSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	s := int(math.Round((1 - float64(compressedSize)/float64(originalSize)) * 100))
	return max(s, 0)
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders n bytes with a 1024 base and at most two decimals,
// e.g. "1.5 MB". Zero is "0 Bytes".
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	i = min(i, len(sizeUnits)-1)
	v := math.Round(float64(n)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
