package identity_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
)

// solidPNG encodes an 8x8 image whose red channel is the marker the fake
// provider keys on.
func solidPNG(t *testing.T, marker uint8) []byte {
	t.Helper()
	return solidPNGSize(t, marker, 8)
}

func solidPNGSize(t *testing.T, marker uint8, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: marker, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func markerOf(img image.Image) uint8 {
	b := img.Bounds()
	r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
	return uint8(r >> 8)
}

// fakeProvider returns the faces registered for an image's marker.
type fakeProvider struct {
	mu    sync.Mutex
	faces map[uint8][]models.Face
	calls int
	err   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{faces: make(map[uint8][]models.Face)}
}

func (p *fakeProvider) set(marker uint8, faces ...models.Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faces[marker] = faces
}

func (p *fakeProvider) Faces(_ context.Context, img image.Image) ([]models.Face, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.faces[markerOf(img)], nil
}

// cosineProvider declares cosine distance the way the ArcFace provider does.
type cosineProvider struct {
	*fakeProvider
}

func (cosineProvider) Metric() identity.Metric { return identity.CosineDistance }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeAugmenter returns solid variants marked base+1, base+2, ...
type fakeAugmenter struct {
	base  uint8
	extra int
}

func (a fakeAugmenter) Augment(_ image.Image, n int) []image.Image {
	out := make([]image.Image, 0, n+a.extra)
	for i := 0; i < n+a.extra; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		c := color.RGBA{R: a.base + uint8(i) + 1, A: 255}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.Set(x, y, c)
			}
		}
		out = append(out, img)
	}
	return out
}

func face(vec ...float32) models.Face {
	return models.Face{
		Box:        models.Box{Top: 1, Right: 6, Bottom: 6, Left: 1},
		Confidence: 0.99,
		Embedding:  vec,
	}
}

type recordingObjects struct {
	mu   sync.Mutex
	keys []string
}

func (o *recordingObjects) PutImage(_ context.Context, kind models.ImageKind, at time.Time, _ []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := storage.ImageKey(kind, at)
	o.keys = append(o.keys, key)
	return key, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
}

func (e *recordingEvents) PublishAttendance(_ context.Context, ev models.AttendanceEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}
