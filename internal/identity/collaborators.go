package identity

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

// EmbeddingProvider detects faces in an image and returns one embedding per
// face, in the provider's detection order.
type EmbeddingProvider interface {
	Faces(ctx context.Context, img image.Image) ([]models.Face, error)
}

// MetricProvider is implemented by providers whose embeddings are meant to
// be compared with a specific metric.
type MetricProvider interface {
	Metric() Metric
}

// Augmenter returns n perturbed copies of img.
type Augmenter interface {
	Augment(img image.Image, n int) []image.Image
}

// NewEmbedding is an embedding waiting to be stored for a new person.
type NewEmbedding struct {
	Vector    []float32
	SourceKey string
}

// IdentityStore is the durable person → embeddings mapping.
type IdentityStore interface {
	// FindPerson returns nil, nil when no person has the given name pair.
	FindPerson(ctx context.Context, firstName, lastName string) (*models.Person, error)
	// EnrollPerson creates the person and all of its embeddings. It returns
	// ErrDuplicatePerson if the name pair is already taken.
	EnrollPerson(ctx context.Context, firstName, lastName string, embeddings []NewEmbedding) (*models.Person, error)
	// KnownFaces returns every stored embedding in insertion order, read as
	// one consistent snapshot.
	KnownFaces(ctx context.Context) ([]models.KnownFace, error)
}

// AttendanceLog is the append-only attendance table.
type AttendanceLog interface {
	RecordAttendance(ctx context.Context, entry *models.AttendanceEntry) error
	// LastAttendance returns the newest entry for the person or nil.
	LastAttendance(ctx context.Context, personID uuid.UUID) (*models.AttendanceEntry, error)
}

// ObjectStore keeps image artefacts (enrollment sources, face snapshots,
// annotated probes).
type ObjectStore interface {
	// PutImage stores a JPEG under a fresh key for kind and returns the key.
	PutImage(ctx context.Context, kind models.ImageKind, at time.Time, jpeg []byte) (string, error)
}

// EventPublisher fans out attendance events.
type EventPublisher interface {
	PublishAttendance(ctx context.Context, ev models.AttendanceEvent) error
}

// Clock returns the current wall-clock time.
type Clock func() time.Time
