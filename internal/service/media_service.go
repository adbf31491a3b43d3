package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"

	"github.com/ristomat/socialcast/internal/models"
)

const (
	jpegQuality   = 90
	maxImageWidth = 1080
)

// NormalizeImage converts raw image bytes into a platform-friendly payload.
// JPEG input passes through untouched. PNG input is re-encoded as JPEG; if
// the decode or encode fails the original bytes are kept so a broken image
// degrades media delivery instead of blocking the whole publish. Anything
// unrecognized passes through with a PNG mimetype as a conservative default.
func NormalizeImage(raw []byte) *models.NormalizedMedia {
	kind, err := filetype.Match(raw)
	if err == nil && kind.Extension == "jpg" {
		return &models.NormalizedMedia{
			Data:     raw,
			MimeType: "image/jpeg",
			Ext:      ".jpg",
			Size:     int64(len(raw)),
		}
	}

	if err == nil && kind.Extension == "png" {
		converted, convErr := pngToJPEG(raw)
		if convErr != nil {
			slog.Info("png conversion failed, keeping original bytes", "error", convErr)
		} else {
			return &models.NormalizedMedia{
				Data:     converted,
				MimeType: "image/jpeg",
				Ext:      ".jpg",
				Size:     int64(len(converted)),
			}
		}
	}

	return &models.NormalizedMedia{
		Data:     raw,
		MimeType: "image/png",
		Ext:      ".png",
		Size:     int64(len(raw)),
	}
}

func pngToJPEG(raw []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error decoding png: %w", err)
	}

	img = downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("error encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale caps the image width so platforms that refuse oversized media
// (Instagram in particular) accept the upload.
func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	if width <= maxImageWidth {
		return img
	}

	height := bounds.Dy() * maxImageWidth / width
	dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
