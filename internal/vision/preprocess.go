package vision

import (
	"image"

	"golang.org/x/image/draw"
)

var (
	detMean, detStd = [3]float32{127.5, 127.5, 127.5}, [3]float32{128, 128, 128}
	embMean, embStd = [3]float32{127.5, 127.5, 127.5}, [3]float32{127.5, 127.5, 127.5}
)

// toCHW resizes img to size x size and lays it out as normalised
// [R][G][B] planes: (pixel - mean) / std.
func toCHW(img image.Image, size int, mean, std [3]float32) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		p := dst.Pix[i*4 : i*4+3]
		for c := 0; c < 3; c++ {
			out[c*plane+i] = (float32(p[c]) - mean[c]) / std[c]
		}
	}
	return out
}

// alignCrop cuts the face region with 10% padding per side, clamped to the
// image, for the embedder.
func alignCrop(img image.Image, r image.Rectangle) image.Image {
	padX := r.Dx() / 10
	padY := r.Dy() / 10
	r = image.Rect(r.Min.X-padX, r.Min.Y-padY, r.Max.X+padX, r.Max.Y+padY).Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), img, r.Min, draw.Src)
	return crop
}
