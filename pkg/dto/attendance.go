package dto

import "github.com/google/uuid"

type RecognizeRequest struct {
	Image string `json:"image"`
}

type RecognizedFaceResponse struct {
	PersonID     uuid.UUID  `json:"person_id"`
	Name         string     `json:"name"`
	Confidence   float64    `json:"confidence"`
	Distance     float64    `json:"distance"`
	Box          [4]int     `json:"box"` // top, right, bottom, left
	PhotoDataURL string     `json:"photoDataUrl,omitempty"`
	AttendanceID *uuid.UUID `json:"attendance_id,omitempty"`
}

type RecognitionResponse struct {
	RecognizedFaces []RecognizedFaceResponse `json:"recognized_faces"`
	ImageBase64     string                   `json:"image_base64"`
	FacesDetected   int                      `json:"faces_detected"`
}

type AttendanceResponse struct {
	ID          uuid.UUID `json:"id"`
	PersonID    uuid.UUID `json:"person_id"`
	Name        string    `json:"name"`
	Timestamp   string    `json:"timestamp"`
	Confidence  float32   `json:"confidence"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
}

type AttendanceListResponse struct {
	Attendance []AttendanceResponse `json:"attendance"`
	Total      int                  `json:"total"`
}

// WSEvent is a WebSocket message for real-time attendance delivery.
type WSEvent struct {
	Type     string             `json:"type"` // attendance_recorded
	PersonID uuid.UUID          `json:"person_id"`
	Data     AttendanceResponse `json:"data"`
}
