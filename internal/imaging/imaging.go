// Package imaging handles frame serialization for EchoGuide.
//
// Captured frames are downscaled, written to a fixed path (overwriting the
// previous capture), reloaded for "previous interaction" recall, and encoded
// as data URLs for the vision-language request.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

const (
	// TargetSize is the side length frames are downscaled to before saving.
	// The vision model does not need more, and small frames keep the
	// request payload cheap.
	TargetSize = 200
	// jpegQuality is the encoder quality for saved captures.
	jpegQuality = 85
)

// Repo saves and reloads capture files under a fixed directory.
type Repo struct {
	dir      string
	filename string
}

// NewRepo creates a Repo writing captures to dir/filename.
func NewRepo(dir, filename string) *Repo {
	return &Repo{dir: dir, filename: filename}
}

// Save downscales the frame and writes it as a JPEG, replacing any previous
// capture at the same path. Returns the full path of the written file.
func (r *Repo) Save(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no image provided to save")
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		slog.Error("Repo.Save: failed to create image directory", "error", err, "dir", r.dir)
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	fullPath := filepath.Join(r.dir, r.filename)
	f, err := os.Create(fullPath)
	if err != nil {
		slog.Error("Repo.Save: failed to create image file", "error", err, "path", fullPath)
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, Downscale(img, TargetSize, TargetSize), &jpeg.Options{Quality: jpegQuality}); err != nil {
		slog.Error("Repo.Save: failed to encode image", "error", err, "path", fullPath)
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	slog.Debug("Repo.Save: image saved", "path", fullPath)
	return fullPath, nil
}

// Load reads and decodes an image file from disk.
func (r *Repo) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image file: %w", err)
	}
	slog.Debug("Repo.Load: image loaded", "path", path)
	return img, nil
}

// Downscale resizes the image to at most width x height, preserving nothing
// beyond what the vision call needs. If the image is already small enough it
// is returned unchanged.
func Downscale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() <= width && b.Dy() <= height {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// DataURL encodes the image as a base64 JPEG data URL for the vision request.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image for data URL: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
