package identity

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/imaging"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/observability"
)

type MatchConfig struct {
	Threshold float64
	// Metric overrides the provider's own metric when set.
	Metric Metric
	// DedupWindow suppresses a new attendance row when the person already has
	// one younger than the window. Zero records every recognition.
	DedupWindow time.Duration
}

// RecognizedFace is one probe face resolved to a known person.
type RecognizedFace struct {
	PersonID   uuid.UUID
	FirstName  string
	LastName   string
	Label      string
	Distance   float64
	Confidence float64
	Box        models.Box
	Crop       image.Image

	// AttendanceID is uuid.Nil when the row was suppressed by the dedup window.
	AttendanceID       uuid.UUID
	AttendanceRecorded bool
	Timestamp          time.Time
}

type RecognitionReport struct {
	Faces         []RecognizedFace
	FacesDetected int
	// Annotated is the probe with boxes and labels for resolved faces only.
	Annotated image.Image
	ProbeKey  string
}

// Matcher classifies every face of a probe image against all known
// identities and logs attendance for the resolved ones.
type Matcher struct {
	cfg        MatchConfig
	provider   EmbeddingProvider
	identities IdentityStore
	attendance AttendanceLog

	// Objects stores face snapshots and annotated probes. Optional.
	Objects ObjectStore
	// Events receives one event per recorded attendance row. Optional.
	Events EventPublisher
	Now    Clock
}

func NewMatcher(cfg MatchConfig, provider EmbeddingProvider, identities IdentityStore, attendance AttendanceLog) *Matcher {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Metric == nil {
		cfg.Metric = ProviderMetric(provider)
	}
	return &Matcher{
		cfg:        cfg,
		provider:   provider,
		identities: identities,
		attendance: attendance,
		Now:        time.Now,
	}
}

// Recognize resolves the faces in a probe image. Unknown faces are left out
// of the report entirely and never produce attendance.
func (m *Matcher) Recognize(ctx context.Context, data []byte) (*RecognitionReport, error) {
	const op = "recognize"

	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fail(op, KindInvalidImage, err)
	}

	start := time.Now()
	faces, err := m.provider.Faces(ctx, img)
	if err != nil {
		return nil, internal(op, "extract embeddings: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("recognize_embed").Observe(time.Since(start).Seconds())
	observability.FacesDetected.WithLabelValues("recognize").Add(float64(len(faces)))

	report := &RecognitionReport{
		Faces:         []RecognizedFace{},
		FacesDetected: len(faces),
	}
	if len(faces) == 0 {
		report.Annotated = imaging.ToRGBA(img)
		return report, nil
	}

	start = time.Now()
	snapshot, err := m.identities.KnownFaces(ctx)
	if err != nil {
		return nil, internal(op, "load known faces: %w", err)
	}

	for _, f := range faces {
		if err := ctx.Err(); err != nil {
			return nil, internal(op, "match: %w", err)
		}
		match, ok := Classify(f.Embedding, snapshot, m.cfg.Threshold, m.cfg.Metric)
		if !ok {
			continue
		}
		report.Faces = append(report.Faces, RecognizedFace{
			PersonID:   match.Face.PersonID,
			FirstName:  match.Face.FirstName,
			LastName:   match.Face.LastName,
			Label:      match.Face.Label(),
			Distance:   match.Distance,
			Confidence: match.Confidence(),
			Box:        f.Box,
			Crop:       imaging.Crop(img, f.Box.Rect()),
		})
	}
	observability.InferenceDuration.WithLabelValues("match").Observe(time.Since(start).Seconds())

	annotations := make([]imaging.Annotation, len(report.Faces))
	for i, rf := range report.Faces {
		annotations[i] = imaging.Annotation{
			Rect:  rf.Box.Rect(),
			Label: fmt.Sprintf("%s (%.2f)", rf.Label, rf.Distance),
		}
	}
	report.Annotated = imaging.Annotate(img, annotations)

	if len(report.Faces) == 0 {
		return report, nil
	}
	report.ProbeKey = m.storeImage(ctx, models.ImageProbe, report.Annotated)

	for i := range report.Faces {
		if err := m.record(ctx, &report.Faces[i], report.ProbeKey); err != nil {
			return nil, internal(op, "record attendance: %w", err)
		}
	}
	return report, nil
}

func (m *Matcher) record(ctx context.Context, rf *RecognizedFace, probeKey string) error {
	observability.FacesRecognized.Inc()
	now := m.Now().UTC().Truncate(time.Second)
	rf.Timestamp = now

	if m.cfg.DedupWindow > 0 {
		last, err := m.attendance.LastAttendance(ctx, rf.PersonID)
		if err != nil {
			return fmt.Errorf("last attendance: %w", err)
		}
		if last != nil && now.Sub(last.Timestamp) < m.cfg.DedupWindow {
			observability.AttendanceDeduplicated.Inc()
			slog.Debug("attendance suppressed by dedup window", "person_id", rf.PersonID, "last", last.Timestamp)
			return nil
		}
	}

	entry := &models.AttendanceEntry{
		ID:         uuid.New(),
		PersonID:   rf.PersonID,
		Timestamp:  now,
		Confidence: float32(rf.Confidence),
		ProbeKey:   probeKey,
	}
	if rf.Crop != nil {
		entry.SnapshotKey = m.storeImage(ctx, models.ImageSnapshot, rf.Crop)
	}
	if err := m.attendance.RecordAttendance(ctx, entry); err != nil {
		return err
	}
	observability.AttendanceRecorded.Inc()

	rf.AttendanceID = entry.ID
	rf.AttendanceRecorded = true

	if m.Events != nil {
		ev := models.AttendanceEvent{
			AttendanceID: entry.ID,
			PersonID:     entry.PersonID,
			Name:         rf.Label,
			Timestamp:    entry.Timestamp,
			Confidence:   entry.Confidence,
			Box:          rf.Box,
			SnapshotKey:  entry.SnapshotKey,
		}
		if err := m.Events.PublishAttendance(ctx, ev); err != nil {
			slog.Error("publish attendance event", "error", err, "attendance_id", entry.ID)
		}
	}
	return nil
}

func (m *Matcher) storeImage(ctx context.Context, kind models.ImageKind, img image.Image) string {
	if m.Objects == nil {
		return ""
	}
	data, err := imaging.EncodeJPEG(img, 85)
	if err != nil {
		slog.Warn("encode image", "kind", kind, "error", err)
		return ""
	}
	key, err := m.Objects.PutImage(ctx, kind, m.Now(), data)
	if err != nil {
		slog.Warn("save image", "kind", kind, "error", err)
		return ""
	}
	return key
}
