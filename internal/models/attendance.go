package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PersonID    uuid.UUID `json:"person_id" db:"person_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	Confidence  float32   `json:"confidence" db:"confidence"`
	SnapshotKey string    `json:"snapshot_key" db:"snapshot_key"` // MinIO key of the face crop
	ProbeKey    string    `json:"probe_key" db:"probe_key"`       // MinIO key of the annotated probe
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AttendanceEvent is the message published to NATS for every recorded entry.
type AttendanceEvent struct {
	AttendanceID uuid.UUID `json:"attendance_id"`
	PersonID     uuid.UUID `json:"person_id"`
	Name         string    `json:"name"`
	Timestamp    time.Time `json:"timestamp"`
	Confidence   float32   `json:"confidence"`
	Box          Box       `json:"box"`
	SnapshotKey  string    `json:"snapshot_key,omitempty"`
}

// AttendanceQuery filters attendance read-back.
type AttendanceQuery struct {
	PersonID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// AttendanceRecord is an attendance entry joined with its person's name.
type AttendanceRecord struct {
	AttendanceEntry
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Name returns the person's display name.
func (r AttendanceRecord) Name() string {
	return Person{FirstName: r.FirstName, LastName: r.LastName}.FullName()
}
