package dto

import "github.com/google/uuid"

// CreatePersonRequest is the JSON form of an enrollment. Image is base64 or
// a data URL.
type CreatePersonRequest struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Image     string `json:"image"`
}

type PersonResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Name      string    `json:"name"`
	FaceCount int       `json:"face_count"`
	CreatedAt string    `json:"created_at"`
}

// EnrollResponse is returned by POST /v1/persons. Person is omitted when no
// face was found in any image.
type EnrollResponse struct {
	Person         *PersonResponse `json:"person,omitempty"`
	EmbeddingCount int             `json:"embedding_count"`
	ImagesTried    int             `json:"images_tried"`
	NoFaceDetected bool            `json:"no_face_detected"`
	Warnings       []string        `json:"warnings,omitempty"`
}

type FaceEmbeddingResponse struct {
	ID        uuid.UUID `json:"id"`
	Seq       int64     `json:"seq"`
	PersonID  uuid.UUID `json:"person_id"`
	SourceKey string    `json:"source_key,omitempty"`
	CreatedAt string    `json:"created_at"`
}
