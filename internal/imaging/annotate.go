package imaging

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	boxColor   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Annotation is one labelled face region to draw on a probe image.
type Annotation struct {
	Rect  image.Rectangle
	Label string
}

// Annotate returns a copy of img with a green box around every annotation
// and its label written inside the bottom-left corner.
func Annotate(img image.Image, annotations []Annotation) *image.RGBA {
	dst := ToRGBA(img)
	offset := img.Bounds().Min

	for _, a := range annotations {
		r := a.Rect.Sub(offset)
		StrokeRect(dst, r, boxColor, 2)

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(labelColor),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(r.Min.X+6, r.Max.Y-6),
		}
		d.DrawString(a.Label)
	}
	return dst
}
