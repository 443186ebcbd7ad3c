package upload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"
)

// noisyJPEG encodes random pixels, which compress poorly and give large
// files at high quality.
func noisyJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func transparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 80, A: uint8((x + y) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestCompress_LargeJPEGFitsLimit(t *testing.T) {
	data := noisyJPEG(t, 2400, 1800, 98)
	if len(data) <= 2<<20 {
		t.Fatalf("fixture too small: %d bytes", len(data))
	}

	c := NewCompressor(DefaultCompressOptions())
	res := c.Compress(context.Background(), NewFile("foto.jpg", data), nil)

	if res.FellBack || res.Err != nil {
		t.Fatalf("unexpected fallback: %v", res.Err)
	}
	if res.File.Size() > 2<<20 {
		t.Errorf("compressed size = %d, want <= 2 MB", res.File.Size())
	}
	if res.File.MIME != "image/jpeg" {
		t.Errorf("MIME = %q, want image/jpeg", res.File.MIME)
	}
	if res.Savings <= 0 {
		t.Errorf("Savings = %d, want > 0", res.Savings)
	}

	img, _, err := image.Decode(bytes.NewReader(res.File.Data))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() > 1920 || b.Dy() > 1920 {
		t.Errorf("dimensions %dx%d exceed 1920", b.Dx(), b.Dy())
	}
}

func TestCompress_CorruptFallsBackToOriginal(t *testing.T) {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x42}, 4096)...)
	f := File{Name: "rusak.jpg", MIME: "image/jpeg", Data: data}

	res := NewCompressor(DefaultCompressOptions()).Compress(context.Background(), f, nil)

	if !res.FellBack || res.Err == nil {
		t.Fatalf("expected fallback with error, got %+v", res)
	}
	if !bytes.Equal(res.File.Data, data) || res.File.Name != "rusak.jpg" {
		t.Error("fallback must return the original file unchanged")
	}
	if res.Savings != 0 {
		t.Errorf("Savings = %d, want 0", res.Savings)
	}
}

func TestCompress_CancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := noisyJPEG(t, 400, 300, 90)
	res := NewCompressor(DefaultCompressOptions()).Compress(ctx, NewFile("a.jpg", data), nil)
	if !res.FellBack {
		t.Fatal("expected fallback on cancelled context")
	}
	if !bytes.Equal(res.File.Data, data) {
		t.Error("fallback must return the original")
	}
}

func TestCompress_TransparentPNGStaysPNG(t *testing.T) {
	data := transparentPNG(t, 2400, 600)
	res := NewCompressor(DefaultCompressOptions()).Compress(context.Background(), NewFile("logo.png", data), nil)
	if res.FellBack {
		t.Fatalf("unexpected fallback: %v", res.Err)
	}
	if res.File.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", res.File.MIME)
	}
}

func TestCompress_NoGainReturnsOriginal(t *testing.T) {
	data := noisyJPEG(t, 64, 64, 10)
	f := NewFile("kecil.jpg", data)

	res := NewCompressor(CompressOptions{MaxSizeMB: 2, MaxDimension: 1920, Quality: 1}).Compress(context.Background(), f, nil)
	if res.FellBack {
		t.Fatalf("unexpected fallback: %v", res.Err)
	}
	if res.File.Size() > f.Size() {
		t.Errorf("output %d larger than input %d", res.File.Size(), f.Size())
	}
}

func TestCompressOptions_Override(t *testing.T) {
	c := NewCompressor(CompressOptions{})
	if got := c.Options(); got != DefaultCompressOptions() {
		t.Errorf("zero options = %+v, want defaults", got)
	}
	merged := (&CompressOptions{MaxDimension: 800}).merge(c.Options())
	if merged.MaxDimension != 800 || merged.MaxSizeMB != 2 || merged.Quality != 0.90 {
		t.Errorf("merged = %+v", merged)
	}
}

func TestCalculateSavings(t *testing.T) {
	tests := []struct {
		orig, comp int64
		want       int
	}{
		{100, 100, 0},
		{100, 50, 50},
		{0, 10, 0},
		{100, 150, 0},
		{3, 2, 33},
		{1000, 1, 100},
	}
	for _, tt := range tests {
		if got := CalculateSavings(tt.orig, tt.comp); got != tt.want {
			t.Errorf("CalculateSavings(%d, %d) = %d, want %d", tt.orig, tt.comp, got, tt.want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 Bytes"},
		{500, "500 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 << 20, "5 MB"},
		{1572864, "1.5 MB"},
		{3 << 30, "3 GB"},
		{1234567, "1.18 MB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.n); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
