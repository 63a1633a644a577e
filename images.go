package okusno

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ambrozic/okusno/content"
)

const (
	maxImageWidth = 1200
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
)

// processUpload validates and processes one uploaded image form file into
// an Upload ready for the asset store.
func processUpload(file *multipart.FileHeader) (content.Upload, error) {
	if file.Size > maxUploadSize {
		return content.Upload{}, fmt.Errorf("file too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return content.Upload{}, err
	}
	defer src.Close()
	return processImage(src, file.Filename)
}

// processImage decodes an image from src, resizes it down to maxImageWidth
// if needed, and re-encodes it as JPEG under a slugified filename. The
// entity id prefix is added later by the asset store.
func processImage(src io.Reader, originalName string) (content.Upload, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return content.Upload{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return content.Upload{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return content.Upload{
		Name: slugifyFilename(originalName) + ".jpg",
		Data: buf.Bytes(),
	}, nil
}

// slugifyFilename converts a filename (without extension) to a URL-safe slug.
func slugifyFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if s := content.Slugify(base); s != "" {
		return s
	}
	return "image"
}
