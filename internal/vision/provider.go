package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
)

const (
	detectorModel = "det_10g.onnx"
	embedderModel = "w600k_r50.onnx"
)

// InitRuntime points onnxruntime_go at the shared library and initialises
// the environment. An empty path picks the platform default name.
func InitRuntime(libPath string) error {
	if libPath == "" {
		libPath = defaultLibPath()
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

// DestroyRuntime releases the environment created by InitRuntime.
func DestroyRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		slog.Warn("destroy onnx runtime", "error", err)
	}
}

func defaultLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Provider detects faces and embeds each one. ONNX sessions hold mutable
// tensors, so calls are serialised.
type Provider struct {
	mu       sync.Mutex
	detector *Detector
	embedder *Embedder
}

// NewProvider loads both models from cfg.ModelsDir.
func NewProvider(cfg config.VisionConfig) (*Provider, error) {
	detPath := filepath.Join(cfg.ModelsDir, detectorModel)
	embPath := filepath.Join(cfg.ModelsDir, embedderModel)

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath, nil)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Provider{detector: det, embedder: emb}, nil
}

// Faces returns one embedding per detected face, most confident first.
// Boxes are in img's coordinate space.
func (p *Provider) Faces(ctx context.Context, img image.Image) ([]models.Face, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	dets, err := p.detector.Detect(toCHW(img, detInputSize, detMean, detStd), b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]models.Face, 0, len(dets))
	for _, d := range dets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := d.Rect().Add(b.Min)
		crop := alignCrop(img, r)
		if crop == nil {
			continue
		}

		start = time.Now()
		vec, err := p.embedder.Extract(toCHW(crop, embInputSize, embMean, embStd))
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		faces = append(faces, models.Face{
			Box:        models.BoxFromRect(r),
			Confidence: d.Confidence,
			Embedding:  vec,
		})
	}
	return faces, nil
}

// Metric reports cosine distance, the metric ArcFace embeddings are trained for.
func (p *Provider) Metric() identity.Metric {
	return identity.CosineDistance
}

func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detector.Close()
	p.embedder.Close()
}
