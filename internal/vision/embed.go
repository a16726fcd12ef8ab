package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	embInputSize  = 112
	embDim        = 512
	embInputName  = "input.1"
	embOutputName = "683"
)

// Embedder wraps an ArcFace w600k_r50 session. Not safe for concurrent use.
type Embedder struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func NewEmbedder(modelPath string, opts *ort.SessionOptions) (*Embedder, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, embInputSize, embInputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, embDim))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{embInputName}, []string{embOutputName},
		[]ort.Value{input}, []ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}

	return &Embedder{session: session, input: input, output: output}, nil
}

// Extract returns the L2-normalised embedding of a 112x112 CHW face crop.
func (e *Embedder) Extract(chw []float32) ([]float32, error) {
	copy(e.input.GetData(), chw)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	embedding := make([]float32, embDim)
	copy(embedding, e.output.GetData())
	normalize(embedding)
	return embedding, nil
}

func (e *Embedder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.input != nil {
		e.input.Destroy()
	}
	if e.output != nil {
		e.output.Destroy()
	}
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
