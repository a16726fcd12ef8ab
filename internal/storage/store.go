package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
)

// Store is the full persistence contract used by the API and CLI: the
// identity store and attendance log the engines need, plus read-back.
type Store interface {
	identity.IdentityStore
	identity.AttendanceLog

	GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error)
	ListPersons(ctx context.Context) ([]models.Person, error)
	CountFaces(ctx context.Context, personID uuid.UUID) (int, error)
	ListFaceEmbeddings(ctx context.Context, personID uuid.UUID) ([]models.FaceEmbedding, error)

	GetAttendance(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error)
	QueryAttendance(ctx context.Context, q models.AttendanceQuery) ([]models.AttendanceRecord, int, error)

	Ping(ctx context.Context) error
	Close()
}

const (
	defaultAttendanceLimit = 50
	maxAttendanceLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultAttendanceLimit
	}
	if limit > maxAttendanceLimit {
		return maxAttendanceLimit
	}
	return limit
}
