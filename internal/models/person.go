package models

import (
	"time"

	"github.com/google/uuid"
)

type Person struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FullName is the display label used in recognition results and annotations.
func (p Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type FaceEmbedding struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Seq       int64     `json:"seq" db:"seq"` // insertion order across the whole store
	PersonID  uuid.UUID `json:"person_id" db:"person_id"`
	Embedding []float32 `json:"embedding" db:"embedding"`
	SourceKey string    `json:"source_key" db:"source_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// KnownFace is one row of the identity snapshot scanned by the matcher:
// an embedding together with the person that owns it.
type KnownFace struct {
	Seq       int64
	PersonID  uuid.UUID
	FirstName string
	LastName  string
	Embedding []float32
}

// Label returns the owner's display name.
func (k KnownFace) Label() string {
	return Person{FirstName: k.FirstName, LastName: k.LastName}.FullName()
}
