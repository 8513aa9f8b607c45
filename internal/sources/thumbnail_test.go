package sources

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}
	return img
}

func TestScaleToFitPreservesAspect(t *testing.T) {
	img := testImage(1920, 1080)
	got := scaleToFit(img, 320, 320)

	b := got.Bounds()
	if b.Dx() != 320 {
		t.Errorf("width = %d, want 320", b.Dx())
	}
	if b.Dy() != 180 {
		t.Errorf("height = %d, want 180 (16:9 preserved)", b.Dy())
	}
}

func TestScaleToFitNoUpscale(t *testing.T) {
	img := testImage(100, 60)
	if got := scaleToFit(img, 320, 180); got != img {
		t.Error("image within bounds should be returned unscaled")
	}
}

func TestEncodeThumbnailProducesJPEGUnderCap(t *testing.T) {
	data := encodeThumbnail(testImage(1920, 1080), 320, 180)
	if data == nil {
		t.Fatal("expected a thumbnail")
	}
	if len(data) > maxThumbnailBytes {
		t.Fatalf("thumbnail %d bytes exceeds cap %d", len(data), maxThumbnailBytes)
	}
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("not a decodable JPEG: %v", err)
	}
}

func TestEncodeThumbnailDisabled(t *testing.T) {
	if encodeThumbnail(testImage(64, 64), 0, 0) != nil {
		t.Error("zero bounds must disable thumbnails")
	}
	if encodeThumbnail(nil, 320, 180) != nil {
		t.Error("nil image must yield nil thumbnail")
	}
}

func TestOptionsWants(t *testing.T) {
	tests := []struct {
		types []string
		kind  string
		want  bool
	}{
		{nil, KindScreen, true},
		{nil, KindWindow, true},
		{[]string{KindScreen}, KindScreen, true},
		{[]string{KindScreen}, KindWindow, false},
		{[]string{KindWindow, KindScreen}, KindScreen, true},
	}
	for _, tt := range tests {
		o := Options{Types: tt.types}
		if got := o.wants(tt.kind); got != tt.want {
			t.Errorf("Options{Types: %v}.wants(%q) = %v, want %v", tt.types, tt.kind, got, tt.want)
		}
	}
}
