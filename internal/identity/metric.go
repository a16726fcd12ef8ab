package identity

import (
	"fmt"
	"math"
)

// Metric is the distance between two embeddings: lower is more similar.
// The metric belongs to the embedding provider that produced the vectors.
type Metric func(a, b []float32) float64

// EuclideanDistance is the L2 distance, the convention of dlib-style 128-d
// face encodings. Providers that don't declare a metric get this one.
// Vectors of different length are infinitely far apart.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance is 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity
}

// MetricByName resolves a configured metric name. An empty name returns a
// nil Metric, which leaves the choice to the embedding provider.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "":
		return nil, nil
	case "euclidean", "l2":
		return EuclideanDistance, nil
	case "cosine":
		return CosineDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance metric %q", name)
	}
}

// ProviderMetric returns the metric declared by provider, or
// EuclideanDistance when it declares none.
func ProviderMetric(provider EmbeddingProvider) Metric {
	if mp, ok := provider.(MetricProvider); ok {
		if m := mp.Metric(); m != nil {
			return m
		}
	}
	return EuclideanDistance
}
