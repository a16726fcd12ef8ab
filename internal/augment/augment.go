// Package augment produces perturbed copies of an enrollment photo so a
// single picture yields several embeddings.
package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/your-org/attendance/internal/imaging"
)

// Params bounds every random perturbation.
type Params struct {
	MaxRotateDeg  float64 // rotation uniform in [-MaxRotateDeg, MaxRotateDeg]
	MaxHueShift   float64 // hue shift in degrees, also scales the saturation shift
	MinNoiseSigma float64
	MaxNoiseSigma float64
	FlipProb      float64
	MaxCropFrac   float64 // per side
	MaxDropout    float64
	MaxBrightness int
}

// DefaultParams mirrors the pipeline the deployed service has always used.
var DefaultParams = Params{
	MaxRotateDeg:  30,
	MaxHueShift:   10,
	MinNoiseSigma: 0.01 * 255,
	MaxNoiseSigma: 0.05 * 255,
	FlipProb:      0.5,
	MaxCropFrac:   0.1,
	MaxDropout:    0.1,
	MaxBrightness: 20,
}

// Augmenter is safe for concurrent use.
type Augmenter struct {
	params Params

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an augmenter with DefaultParams. A zero seed draws a random one.
func New(seed uint64) *Augmenter {
	return NewWithParams(DefaultParams, seed)
}

func NewWithParams(p Params, seed uint64) *Augmenter {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Augmenter{
		params: p,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Augment returns n variants of img, each the size of img.
func (a *Augmenter) Augment(img image.Image, n int) []image.Image {
	if n <= 0 || img == nil || img.Bounds().Empty() {
		return nil
	}
	src := imaging.ToRGBA(img)

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, a.variant(src))
	}
	return out
}

func (a *Augmenter) uniform(lo, hi float64) float64 {
	return lo + a.rng.Float64()*(hi-lo)
}

func (a *Augmenter) variant(src *image.RGBA) *image.RGBA {
	p := a.params

	img := rotate(src, a.uniform(-p.MaxRotateDeg, p.MaxRotateDeg))
	shift := a.uniform(-p.MaxHueShift, p.MaxHueShift)
	shiftHueSaturation(img, shift, shift/255)
	a.addNoise(img, a.uniform(p.MinNoiseSigma, p.MaxNoiseSigma))
	if a.rng.Float64() < p.FlipProb {
		flipHorizontal(img)
	}

	// Zero, one or two of the optional ops, applied in declaration order.
	ops := []func(*image.RGBA) *image.RGBA{
		func(m *image.RGBA) *image.RGBA {
			return a.crop(m)
		},
		func(m *image.RGBA) *image.RGBA {
			a.dropout(m, a.uniform(0, p.MaxDropout))
			return m
		},
		func(m *image.RGBA) *image.RGBA {
			brighten(m, a.rng.IntN(2*p.MaxBrightness+1)-p.MaxBrightness)
			return m
		},
	}
	k := a.rng.IntN(3)
	picked := a.rng.Perm(len(ops))[:k]
	for i, op := range ops {
		for _, j := range picked {
			if i == j {
				img = op(img)
			}
		}
	}
	return img
}

// rotate turns img by deg degrees around its centre, filling with black.
func rotate(src *image.RGBA, deg float64) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.Black), image.Point{}, draw.Src)

	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, m, src, b, draw.Over, nil)
	return dst
}

func shiftHueSaturation(img *image.RGBA, hueDeg, sat float64) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		h, s, v := rgbToHSV(pix[i], pix[i+1], pix[i+2])
		h = math.Mod(h+hueDeg+360, 360)
		s = clamp01(s + sat)
		pix[i], pix[i+1], pix[i+2] = hsvToRGB(h, s, v)
	}
}

func (a *Augmenter) addNoise(img *image.RGBA, sigma float64) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			pix[i+c] = clampByte(float64(pix[i+c]) + a.rng.NormFloat64()*sigma)
		}
	}
}

func flipHorizontal(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for l, r := b.Min.X, b.Max.X-1; l < r; l, r = l+1, r-1 {
			li := img.PixOffset(l, y)
			ri := img.PixOffset(r, y)
			for c := 0; c < 4; c++ {
				img.Pix[li+c], img.Pix[ri+c] = img.Pix[ri+c], img.Pix[li+c]
			}
		}
	}
}

// crop removes up to MaxCropFrac from each side and scales the rest back up.
func (a *Augmenter) crop(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	top := int(a.uniform(0, a.params.MaxCropFrac) * float64(h))
	bottom := int(a.uniform(0, a.params.MaxCropFrac) * float64(h))
	left := int(a.uniform(0, a.params.MaxCropFrac) * float64(w))
	right := int(a.uniform(0, a.params.MaxCropFrac) * float64(w))

	r := image.Rect(b.Min.X+left, b.Min.Y+top, b.Max.X-right, b.Max.Y-bottom)
	if r.Empty() {
		return img
	}
	dst := image.NewRGBA(b)
	draw.CatmullRom.Scale(dst, b, img, r, draw.Src, nil)
	return dst
}

func (a *Augmenter) dropout(img *image.RGBA, p float64) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		if a.rng.Float64() < p {
			pix[i], pix[i+1], pix[i+2] = 0, 0, 0
		}
	}
}

func brighten(img *image.RGBA, delta int) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			pix[i+c] = clampByte(float64(int(pix[i+c]) + delta))
		}
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func rgbToHSV(r8, g8, b8 uint8) (h, s, v float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	d := maxC - minC
	if maxC == 0 || d == 0 {
		return 0, 0, v
	}
	s = d / maxC
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/d, 6)
	case g:
		h = 60 * ((b-r)/d + 2)
	default:
		h = 60 * ((r-g)/d + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return clampByte((r + m) * 255), clampByte((g + m) * 255), clampByte((b + m) * 255)
}
