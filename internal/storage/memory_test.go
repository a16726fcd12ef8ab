package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
)

func vec(vals ...float32) identity.NewEmbedding {
	return identity.NewEmbedding{Vector: vals}
}

func TestMemoryStoreKnownFacesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ana, err := s.EnrollPerson(ctx, "Ana", "Lopez", []identity.NewEmbedding{vec(1), vec(2)})
	if err != nil {
		t.Fatalf("EnrollPerson: %v", err)
	}
	bo, err := s.EnrollPerson(ctx, "Bo", "", []identity.NewEmbedding{vec(3)})
	if err != nil {
		t.Fatalf("EnrollPerson: %v", err)
	}

	faces, err := s.KnownFaces(ctx)
	if err != nil {
		t.Fatalf("KnownFaces: %v", err)
	}
	if len(faces) != 3 {
		t.Fatalf("got %d faces, want 3", len(faces))
	}
	wantOwners := []uuid.UUID{ana.ID, ana.ID, bo.ID}
	for i, f := range faces {
		if f.PersonID != wantOwners[i] {
			t.Errorf("face %d owner = %s, want %s", i, f.PersonID, wantOwners[i])
		}
		if f.Embedding[0] != float32(i+1) {
			t.Errorf("face %d embedding = %v", i, f.Embedding)
		}
		if i > 0 && f.Seq <= faces[i-1].Seq {
			t.Errorf("seq not increasing at %d", i)
		}
	}
	if faces[2].Label() != "Bo" {
		t.Errorf("label = %q, want Bo", faces[2].Label())
	}

	n, _ := s.CountFaces(ctx, ana.ID)
	if n != 2 {
		t.Errorf("CountFaces = %d, want 2", n)
	}
}

func TestMemoryStoreDuplicatePerson(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.EnrollPerson(ctx, "Ana", "Lopez", []identity.NewEmbedding{vec(1)}); err != nil {
		t.Fatalf("EnrollPerson: %v", err)
	}
	_, err := s.EnrollPerson(ctx, "Ana", "Lopez", []identity.NewEmbedding{vec(2)})
	if !errors.Is(err, identity.ErrDuplicatePerson) {
		t.Fatalf("err = %v, want ErrDuplicatePerson", err)
	}

	// Same first name with a different last name is a different person.
	if _, err := s.EnrollPerson(ctx, "Ana", "", []identity.NewEmbedding{vec(3)}); err != nil {
		t.Fatalf("EnrollPerson: %v", err)
	}

	faces, _ := s.KnownFaces(ctx)
	if len(faces) != 2 {
		t.Errorf("got %d faces, want 2", len(faces))
	}

	p, err := s.FindPerson(ctx, "Ana", "Lopez")
	if err != nil || p == nil {
		t.Fatalf("FindPerson = %v, %v", p, err)
	}
	if missing, _ := s.FindPerson(ctx, "Nobody", ""); missing != nil {
		t.Errorf("FindPerson for unknown name = %+v, want nil", missing)
	}
}

func TestMemoryStoreConcurrentEnrollAndScan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = s.EnrollPerson(ctx, fmt.Sprintf("P%d", i), "", []identity.NewEmbedding{vec(1), vec(2), vec(3)})
		}(i)
		go func() {
			defer wg.Done()
			faces, err := s.KnownFaces(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			// Enrollment is atomic: embeddings appear in whole groups of three.
			if len(faces)%3 != 0 {
				t.Errorf("partial enrollment visible: %d faces", len(faces))
			}
		}()
	}
	wg.Wait()

	persons, _ := s.ListPersons(ctx)
	if len(persons) != 20 {
		t.Errorf("got %d persons, want 20", len(persons))
	}
}

func TestMemoryStoreAttendance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ana, _ := s.EnrollPerson(ctx, "Ana", "Lopez", []identity.NewEmbedding{vec(1)})
	bo, _ := s.EnrollPerson(ctx, "Bo", "Chen", []identity.NewEmbedding{vec(2)})

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []models.AttendanceEntry{
		{PersonID: ana.ID, Timestamp: base, Confidence: 0.9},
		{PersonID: bo.ID, Timestamp: base.Add(time.Minute), Confidence: 0.8},
		{PersonID: ana.ID, Timestamp: base.Add(2 * time.Minute), Confidence: 0.7},
	}
	for i := range entries {
		if err := s.RecordAttendance(ctx, &entries[i]); err != nil {
			t.Fatalf("RecordAttendance: %v", err)
		}
		if entries[i].ID == uuid.Nil {
			t.Fatalf("entry %d has no id", i)
		}
	}

	if err := s.RecordAttendance(ctx, &models.AttendanceEntry{PersonID: uuid.New()}); err == nil {
		t.Error("expected error for unknown person")
	}

	last, err := s.LastAttendance(ctx, ana.ID)
	if err != nil || last == nil {
		t.Fatalf("LastAttendance = %v, %v", last, err)
	}
	if !last.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("LastAttendance timestamp = %v", last.Timestamp)
	}
	if none, _ := s.LastAttendance(ctx, uuid.New()); none != nil {
		t.Errorf("LastAttendance for stranger = %+v, want nil", none)
	}

	tests := []struct {
		name  string
		query models.AttendanceQuery
		want  int
		total int
	}{
		{"all", models.AttendanceQuery{}, 3, 3},
		{"by person", models.AttendanceQuery{PersonID: &ana.ID}, 2, 2},
		{"from", models.AttendanceQuery{From: ptr(base.Add(time.Minute))}, 2, 2},
		{"to", models.AttendanceQuery{To: ptr(base)}, 1, 1},
		{"limit", models.AttendanceQuery{Limit: 1}, 1, 3},
		{"offset past end", models.AttendanceQuery{Offset: 10}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.QueryAttendance(ctx, tt.query)
			if err != nil {
				t.Fatalf("QueryAttendance: %v", err)
			}
			if len(got) != tt.want || total != tt.total {
				t.Errorf("got %d rows (total %d), want %d (total %d)", len(got), total, tt.want, tt.total)
			}
		})
	}

	all, _, _ := s.QueryAttendance(ctx, models.AttendanceQuery{})
	if all[0].Name() != "Ana Lopez" || !all[0].Timestamp.Equal(base.Add(2*time.Minute)) {
		t.Errorf("newest entry = %+v", all[0])
	}

	rec, err := s.GetAttendance(ctx, entries[1].ID)
	if err != nil || rec == nil {
		t.Fatalf("GetAttendance = %v, %v", rec, err)
	}
	if rec.Name() != "Bo Chen" {
		t.Errorf("GetAttendance name = %q", rec.Name())
	}
}

func ptr[T any](v T) *T { return &v }
