package frame

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
)

// Encode serializes img for the output named key: JPEG for .jpg/.jpeg, PNG otherwise.
func Encode(img image.Image, key string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	}
}
