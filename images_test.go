package okusno

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
)

func encodeTestPNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &buf
}

func TestProcessImage(t *testing.T) {
	up, err := processImage(encodeTestPNG(t, 50, 30), "Moja Slika.PNG")
	if err != nil {
		t.Fatalf("processImage: %v", err)
	}
	if up.Name != "moja-slika.jpg" {
		t.Errorf("Name = %q, want moja-slika.jpg", up.Name)
	}
	if len(up.Data) == 0 {
		t.Error("Data should not be empty")
	}

	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("small image should not be resized, got width %d", img.Bounds().Dx())
	}
}

func TestProcessImageResizesWide(t *testing.T) {
	up, err := processImage(encodeTestPNG(t, 2400, 20), "wide.png")
	if err != nil {
		t.Fatalf("processImage: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() != maxImageWidth {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), maxImageWidth)
	}
}

func TestProcessImageRejectsGarbage(t *testing.T) {
	_, err := processImage(strings.NewReader("not an image"), "x.jpg")
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestSlugifyFilenameFallback(t *testing.T) {
	if got := slugifyFilename("???.png"); got != "image" {
		t.Errorf("slugifyFilename = %q, want fallback", got)
	}
}
