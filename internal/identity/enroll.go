package identity

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/your-org/attendance/internal/imaging"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
)

// DefaultAugmentCount is the number of perturbed variants added to the
// original image when enrolling.
const DefaultAugmentCount = 10

type EnrollConfig struct {
	AugmentCount int
	// Serialize holds a per-name lock from the duplicate check until the
	// person is written, so concurrent enrollments of one name pair cannot
	// both pass the check.
	Serialize bool
}

type EnrollRequest struct {
	FirstName string
	LastName  string
	Image     []byte
}

type EnrollResult struct {
	// Person is nil when no face was found in any image of the working set.
	Person         *models.Person
	EmbeddingCount int
	ImagesTried    int
	NoFaceDetected bool
	Warnings       []string
}

// Enroller registers new people from a single photograph.
type Enroller struct {
	cfg       EnrollConfig
	provider  EmbeddingProvider
	augmenter Augmenter
	store     IdentityStore
	locks     *keyedMutex

	// Objects stores the original enrollment image. Optional.
	Objects ObjectStore
}

func NewEnroller(cfg EnrollConfig, provider EmbeddingProvider, augmenter Augmenter, store IdentityStore) *Enroller {
	if cfg.AugmentCount < 0 {
		cfg.AugmentCount = 0
	}
	return &Enroller{
		cfg:       cfg,
		provider:  provider,
		augmenter: augmenter,
		store:     store,
		locks:     newKeyedMutex(),
	}
}

// Enroll registers a person exactly once. Only the first face detected in
// each image of the working set contributes an embedding.
func (e *Enroller) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	const op = "enroll"

	first, last := canonicalName(req.FirstName), canonicalName(req.LastName)
	if first == "" {
		observability.Enrollments.WithLabelValues(KindInvalidRequest.String()).Inc()
		return nil, fail(op, KindInvalidRequest, fmt.Errorf("%w: first name is required", ErrInvalidRequest))
	}

	img, err := imaging.Decode(req.Image)
	if err != nil {
		observability.Enrollments.WithLabelValues(KindInvalidImage.String()).Inc()
		return nil, fail(op, KindInvalidImage, err)
	}

	if e.cfg.Serialize {
		unlock := e.locks.Lock(first + "\x00" + last)
		defer unlock()
	}

	existing, err := e.store.FindPerson(ctx, first, last)
	if err != nil {
		observability.Enrollments.WithLabelValues(KindInternal.String()).Inc()
		return nil, internal(op, "find person: %w", err)
	}
	if existing != nil {
		observability.Enrollments.WithLabelValues(KindDuplicatePerson.String()).Inc()
		return nil, fail(op, KindDuplicatePerson, fmt.Errorf("%w: %q", ErrDuplicatePerson, existing.FullName()))
	}

	images := e.workingSet(img)
	result := &EnrollResult{ImagesTried: len(images)}

	start := time.Now()
	vectors, err := e.embed(ctx, images)
	if err != nil {
		observability.Enrollments.WithLabelValues(KindInternal.String()).Inc()
		return nil, internal(op, "extract embeddings: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("enroll_embed").Observe(time.Since(start).Seconds())

	if len(vectors) == 0 {
		slog.Warn("enrollment found no face", "first_name", first, "last_name", last, "images", len(images))
		result.NoFaceDetected = true
		result.Warnings = append(result.Warnings, "no face detected in the image or any augmented variant; nothing was stored")
		observability.Enrollments.WithLabelValues("no_face").Inc()
		return result, nil
	}

	sourceKey := e.storeSource(ctx, img)
	embeddings := make([]NewEmbedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = NewEmbedding{Vector: v, SourceKey: sourceKey}
	}

	person, err := e.store.EnrollPerson(ctx, first, last, embeddings)
	if err != nil {
		if errors.Is(err, ErrDuplicatePerson) {
			observability.Enrollments.WithLabelValues(KindDuplicatePerson.String()).Inc()
			return nil, fail(op, KindDuplicatePerson, err)
		}
		observability.Enrollments.WithLabelValues(KindInternal.String()).Inc()
		return nil, internal(op, "store person: %w", err)
	}

	observability.EmbeddingsStored.Add(float64(len(embeddings)))
	observability.Enrollments.WithLabelValues("success").Inc()
	slog.Info("person enrolled", "person_id", person.ID, "embeddings", len(embeddings), "images", len(images))

	result.Person = person
	result.EmbeddingCount = len(embeddings)
	if len(vectors) < len(images) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("faces found in %d of %d images", len(vectors), len(images)))
	}
	return result, nil
}

// canonicalName trims s and puts it in Unicode NFC so a composed and a
// decomposed spelling of the same name collide.
func canonicalName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// workingSet is the original image followed by at most AugmentCount variants.
func (e *Enroller) workingSet(img image.Image) []image.Image {
	images := []image.Image{img}
	if e.augmenter == nil || e.cfg.AugmentCount == 0 {
		return images
	}
	variants := e.augmenter.Augment(img, e.cfg.AugmentCount)
	if len(variants) > e.cfg.AugmentCount {
		variants = variants[:e.cfg.AugmentCount]
	}
	for _, v := range variants {
		if v == nil || v.Bounds().Empty() {
			continue
		}
		images = append(images, v)
	}
	return images
}

func (e *Enroller) embed(ctx context.Context, images []image.Image) ([][]float32, error) {
	var vectors [][]float32
	for i, im := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		faces, err := e.provider.Faces(ctx, im)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		observability.FacesDetected.WithLabelValues("enroll").Add(float64(len(faces)))
		if len(faces) == 0 || len(faces[0].Embedding) == 0 {
			continue
		}
		vectors = append(vectors, faces[0].Embedding)
	}
	return vectors, nil
}

func (e *Enroller) storeSource(ctx context.Context, img image.Image) string {
	if e.Objects == nil {
		return ""
	}
	data, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		slog.Warn("encode enrollment image", "error", err)
		return ""
	}
	key, err := e.Objects.PutImage(ctx, models.ImageEnrollment, time.Now(), data)
	if err != nil {
		slog.Warn("save enrollment image", "error", err)
		return ""
	}
	return key
}
