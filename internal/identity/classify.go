package identity

import "github.com/your-org/attendance/internal/models"

// DefaultThreshold is the maximum accepted distance for a match.
const DefaultThreshold = 0.58

// Match is the result of classifying one probe embedding.
type Match struct {
	Face     models.KnownFace
	Distance float64
}

// Confidence is the complement of the match distance.
func (m Match) Confidence() float64 {
	return 1 - m.Distance
}

// Classify runs nearest-neighbour classification of probe over the whole
// snapshot. The best distance starts at threshold and only a strictly smaller
// distance replaces it, so among equal distances the record that comes first
// in the snapshot wins. ok is false when nothing beats the threshold.
func Classify(probe []float32, snapshot []models.KnownFace, threshold float64, metric Metric) (Match, bool) {
	best := threshold
	found := -1
	for i := range snapshot {
		d := metric(probe, snapshot[i].Embedding)
		if d < best {
			best = d
			found = i
		}
	}
	if found < 0 {
		return Match{}, false
	}
	return Match{Face: snapshot[found], Distance: best}, true
}
