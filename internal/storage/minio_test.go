package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
)

func TestImageKey(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC.
	at := time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	tests := []struct {
		kind   models.ImageKind
		prefix string
	}{
		{models.ImageEnrollment, "enrollments/20240302/"},
		{models.ImageSnapshot, "snapshots/20240302/"},
		{models.ImageProbe, "probes/20240302/"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			key := ImageKey(tt.kind, at)
			if !strings.HasPrefix(key, tt.prefix) || !strings.HasSuffix(key, ".jpg") {
				t.Fatalf("key = %q, want %s<uuid>.jpg", key, tt.prefix)
			}
			id := strings.TrimSuffix(strings.TrimPrefix(key, tt.prefix), ".jpg")
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("key %q does not end in a uuid: %v", key, err)
			}
		})
	}

	if ImageKey(models.ImageProbe, at) == ImageKey(models.ImageProbe, at) {
		t.Error("keys must be unique per call")
	}
}
