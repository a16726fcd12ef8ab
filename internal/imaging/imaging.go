// Package imaging holds the raster helpers shared by the enrollment and
// matching paths: decoding uploads, cropping faces, annotating probes and
// re-encoding results for display.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUndecodable is returned when input bytes do not decode to a non-empty raster.
var ErrUndecodable = errors.New("image could not be decoded")

// Decode decodes any registered image format. Empty input, unknown formats
// and zero-area rasters all yield ErrUndecodable.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUndecodable)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty raster", ErrUndecodable)
	}
	return img, nil
}

// FromDataURL decodes a base64 payload, accepting both bare base64 and
// "data:image/jpeg;base64,..." URLs.
func FromDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, fmt.Errorf("%w: malformed data url", ErrUndecodable)
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return data, nil
}

// DataURL wraps JPEG bytes as a data URL.
func DataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + Base64(jpegData)
}

func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// EncodeJPEG encodes an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// ToRGBA returns a mutable RGBA copy of img with its origin at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Crop copies the region r out of img. The region is clamped to the image
// bounds; nil is returned when nothing remains.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// StrokeRect draws an axis-aligned rectangle outline of the given thickness.
func StrokeRect(dst draw.Image, r image.Rectangle, c color.Color, thickness int) {
	u := image.NewUniform(c)
	for i := 0; i < thickness; i++ {
		rr := r.Inset(i)
		if rr.Empty() {
			return
		}
		draw.Draw(dst, image.Rect(rr.Min.X, rr.Min.Y, rr.Max.X, rr.Min.Y+1), u, image.Point{}, draw.Over)
		draw.Draw(dst, image.Rect(rr.Min.X, rr.Max.Y-1, rr.Max.X, rr.Max.Y), u, image.Point{}, draw.Over)
		draw.Draw(dst, image.Rect(rr.Min.X, rr.Min.Y, rr.Min.X+1, rr.Max.Y), u, image.Point{}, draw.Over)
		draw.Draw(dst, image.Rect(rr.Max.X-1, rr.Min.Y, rr.Max.X, rr.Max.Y), u, image.Point{}, draw.Over)
	}
}
