package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

func TestAttendanceSubject(t *testing.T) {
	id := uuid.MustParse("3f1c2a9e-0000-4000-8000-000000000001")
	if got := attendanceSubject(id); got != "attendance.3f1c2a9e-0000-4000-8000-000000000001" {
		t.Errorf("subject = %q", got)
	}
}

func TestDecodeAttendance(t *testing.T) {
	ev := models.AttendanceEvent{
		AttendanceID: uuid.New(),
		PersonID:     uuid.New(),
		Name:         "Ana Lopez",
		Timestamp:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Confidence:   0.8,
		Box:          models.Box{Top: 1, Right: 2, Bottom: 3, Left: 0},
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeAttendance(data)
	if err != nil {
		t.Fatalf("decodeAttendance: %v", err)
	}
	if got.AttendanceID != ev.AttendanceID || got.Name != ev.Name || !got.Timestamp.Equal(ev.Timestamp) || got.Box != ev.Box {
		t.Errorf("decoded %+v, want %+v", got, ev)
	}

	if _, err := decodeAttendance([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestDurableName(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"api-ws", "web-1"}, "api-ws-web-1"},
		{[]string{"api-ws", "node.example.com"}, "api-ws-node-example-com"},
		{[]string{"a b", "c>*"}, "a-b-c--"},
	}
	for _, tt := range tests {
		if got := DurableName(tt.parts...); got != tt.want {
			t.Errorf("DurableName(%q) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}
