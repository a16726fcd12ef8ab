package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
)

type constProvider struct{ calls int }

func (p *constProvider) Faces(context.Context, image.Image) ([]models.Face, error) {
	p.calls++
	return []models.Face{{Box: models.Box{Top: 0, Right: 4, Bottom: 4, Left: 0}, Embedding: []float32{1, 0}}}, nil
}

// unitProvider returns one unit vector per call, in order, and compares
// them by cosine distance.
type unitProvider struct{ vecs [][]float32 }

func (p *unitProvider) Faces(context.Context, image.Image) ([]models.Face, error) {
	vec := p.vecs[0]
	if len(p.vecs) > 1 {
		p.vecs = p.vecs[1:]
	}
	return []models.Face{{Box: models.Box{Top: 0, Right: 4, Bottom: 4, Left: 0}, Embedding: vec}}, nil
}

func (p *unitProvider) Metric() identity.Metric { return identity.CosineDistance }

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ATT_DB_DRIVER", "memory")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestOpenMemoryWithoutVision(t *testing.T) {
	a, err := Open(context.Background(), memoryConfig(t), Options{SkipVision: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	if a.Objects != nil || a.Producer != nil {
		t.Error("optional backends should be nil when disabled")
	}
	if a.Enroller != nil || a.Matcher != nil {
		t.Error("engines should be nil without vision")
	}

	checks := a.Readiness()
	if len(checks) != 2 || checks[0].Name != "database" || checks[1].Name != "vision" {
		t.Fatalf("checks = %+v", checks)
	}
	if err := checks[0].Check(context.Background()); err != nil {
		t.Errorf("database check: %v", err)
	}
	if err := checks[1].Check(context.Background()); err == nil {
		t.Error("vision check passed without a provider")
	}
}

func TestUseProviderAppliesEnrollmentConfig(t *testing.T) {
	cfg := memoryConfig(t)
	three := 3
	cfg.Enrollment.AugmentCount = &three
	cfg.Enrollment.Seed = 7

	a, err := Open(context.Background(), cfg, Options{SkipVision: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	provider := &constProvider{}
	a.UseProvider(provider)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	res, err := a.Enroller.Enroll(context.Background(), identity.EnrollRequest{FirstName: "Ana", Image: buf.Bytes()})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if res.ImagesTried != 4 || res.EmbeddingCount != 4 || provider.calls != 4 {
		t.Errorf("tried = %d, stored = %d, calls = %d, want 4", res.ImagesTried, res.EmbeddingCount, provider.calls)
	}

	report, err := a.Matcher.Recognize(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(report.Faces) != 1 || report.Faces[0].Label != "Ana" {
		t.Errorf("faces = %+v", report.Faces)
	}
}

func TestOpenRejectsUnreachablePostgres(t *testing.T) {
	t.Setenv("ATT_DB_HOST", "127.0.0.1")
	t.Setenv("ATT_DB_PORT", "1")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(context.Background(), cfg, Options{SkipVision: true}); err == nil {
		t.Fatal("expected an error for an unreachable database")
	}
}

func TestUseProviderMetric(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		want   int
	}{
		{"provider default", "", 1},
		{"explicit cosine", "cosine", 1},
		{"explicit euclidean", "euclidean", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig(t)
			zero := 0
			cfg.Enrollment.AugmentCount = &zero
			cfg.Matching.Metric = tt.metric

			a, err := Open(context.Background(), cfg, Options{SkipVision: true})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer a.Close()
			a.UseProvider(&unitProvider{vecs: [][]float32{{1, 0}, {0.6, 0.8}}})

			if _, err := a.Enroller.Enroll(context.Background(), identity.EnrollRequest{FirstName: "Ana", Image: testPNG(t)}); err != nil {
				t.Fatalf("enroll: %v", err)
			}
			report, err := a.Matcher.Recognize(context.Background(), testPNG(t))
			if err != nil {
				t.Fatalf("recognize: %v", err)
			}
			if len(report.Faces) != tt.want {
				t.Errorf("recognized %d faces, want %d", len(report.Faces), tt.want)
			}
		})
	}
}
