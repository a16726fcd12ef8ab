package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	valid := pngBytes(t, solid(4, 3, color.White))

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{name: "png", data: valid},
		{name: "empty", data: nil, wantErr: true},
		{name: "garbage", data: []byte("not an image"), wantErr: true},
		{name: "truncated", data: valid[:len(valid)/2], wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrUndecodable) {
					t.Fatalf("expected ErrUndecodable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
				t.Errorf("unexpected bounds %v", img.Bounds())
			}
		})
	}
}

func TestFromDataURL(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	enc := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{enc, "data:image/png;base64," + enc} {
		got, err := FromDataURL(in)
		if err != nil {
			t.Fatalf("FromDataURL(%q): %v", in, err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("FromDataURL(%q) = %v, want %v", in, got, raw)
		}
	}

	if _, err := FromDataURL("data:image/png;base64"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("expected ErrUndecodable for malformed data url, got %v", err)
	}
	if _, err := FromDataURL("%%%"); !errors.Is(err, ErrUndecodable) {
		t.Errorf("expected ErrUndecodable for bad base64, got %v", err)
	}
}

func TestCrop(t *testing.T) {
	img := solid(10, 10, color.White)
	img.Set(2, 3, color.Black)

	crop := Crop(img, image.Rect(2, 3, 5, 7))
	if crop == nil {
		t.Fatal("expected crop")
	}
	if crop.Bounds() != image.Rect(0, 0, 3, 4) {
		t.Errorf("unexpected crop bounds %v", crop.Bounds())
	}
	r, g, b, _ := crop.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("expected black origin pixel, got %d %d %d", r, g, b)
	}

	clamped := Crop(img, image.Rect(8, 8, 20, 20))
	if clamped.Bounds().Dx() != 2 || clamped.Bounds().Dy() != 2 {
		t.Errorf("expected crop clamped to 2x2, got %v", clamped.Bounds())
	}

	if Crop(img, image.Rect(20, 20, 30, 30)) != nil {
		t.Error("expected nil crop outside the image")
	}
}

func TestAnnotateDrawsBoxWithoutTouchingSource(t *testing.T) {
	src := solid(40, 40, color.Black)
	out := Annotate(src, []Annotation{{Rect: image.Rect(5, 5, 35, 35), Label: "Ana Lopez (0.31)"}})

	got := out.RGBAAt(5, 20)
	if got != boxColor {
		t.Errorf("expected box colour on left edge, got %v", got)
	}
	if c := out.RGBAAt(0, 0); c.G != 0 {
		t.Errorf("pixel outside the box changed: %v", c)
	}
	if r, g, b, _ := src.At(5, 20).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Error("source image was modified")
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, err := EncodeJPEG(solid(8, 8, color.White), 85)
	if err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("unexpected width %d", img.Bounds().Dx())
	}
}
