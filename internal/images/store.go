// Package images stores uploaded post images on disk and derives webp
// thumbnails from them.
package images

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	ThumbnailMaxSize = 256
	WebPQuality      = 70
)

type Store struct {
	root     string
	maxBytes int64
}

// NewStore creates a store rooted at dir. maxUploadSizeMB bounds a
// single upload.
func NewStore(dir string, maxUploadSizeMB int) *Store {
	return &Store{
		root:     dir,
		maxBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// SavePost validates and writes a post image, returning its path
// relative to the store root. A webp thumbnail is written next to the
// original.
func (s *Store) SavePost(filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewFieldValidationError(map[string]string{
			"image": "no file uploaded",
		})
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewFieldValidationError(map[string]string{
			"image": fmt.Sprintf("file too large (max %dMB)", s.maxBytes/(1024*1024)),
		})
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewFieldValidationError(map[string]string{
			"image": "upload a valid image; the file is not an image or is corrupted",
		})
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewFieldValidationError(map[string]string{
			"image": "upload a valid image; the file is not an image or is corrupted",
		})
	}

	name := fmt.Sprintf("%s.%s", uuid.NewString(), extensionFor(format, filename))
	relPath := filepath.ToSlash(filepath.Join("posts", name))
	absPath := filepath.Join(s.root, "posts", name)

	if err := writeBytesToFile(absPath, content); err != nil {
		return "", models.NewInternalError(err)
	}

	thumb, err := encodeWebP(resizeToFit(decoded, ThumbnailMaxSize, ThumbnailMaxSize), WebPQuality)
	if err != nil {
		_ = os.Remove(absPath)
		return "", models.NewInternalError(err)
	}
	thumbPath := thumbnailPathFor(absPath)
	if err := writeBytesToFile(thumbPath, thumb); err != nil {
		_ = os.Remove(absPath)
		return "", models.NewInternalError(err)
	}

	return relPath, nil
}

// URL returns the public path for a stored image, or "" when the post
// has none.
func (s *Store) URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return "/media/" + relPath
}

func thumbnailPathFor(absPath string) string {
	ext := filepath.Ext(absPath)
	return strings.TrimSuffix(absPath, ext) + ".thumb.webp"
}

func extensionFor(format, filename string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "jpg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	case "webp":
		return "webp"
	}
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "bin"
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
