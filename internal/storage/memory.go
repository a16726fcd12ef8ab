package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
)

type nameKey struct {
	first, last string
}

// MemoryStore is a process-local Store. Readers receive copies so a
// snapshot never changes underneath a scan.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	persons    map[uuid.UUID]models.Person
	byName     map[nameKey]uuid.UUID
	order      []uuid.UUID
	embeddings []models.FaceEmbedding
	attendance []models.AttendanceEntry
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		persons: make(map[uuid.UUID]models.Person),
		byName:  make(map[nameKey]uuid.UUID),
		now:     time.Now,
	}
}

func (s *MemoryStore) FindPerson(_ context.Context, firstName, lastName string) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[nameKey{firstName, lastName}]
	if !ok {
		return nil, nil
	}
	p := s.persons[id]
	return &p, nil
}

func (s *MemoryStore) GetPerson(_ context.Context, id uuid.UUID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.persons[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) ListPersons(_ context.Context) ([]models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	persons := make([]models.Person, 0, len(s.order))
	for _, id := range s.order {
		persons = append(persons, s.persons[id])
	}
	return persons, nil
}

func (s *MemoryStore) EnrollPerson(_ context.Context, firstName, lastName string, embeddings []identity.NewEmbedding) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nameKey{firstName, lastName}
	if _, ok := s.byName[key]; ok {
		return nil, fmt.Errorf("create person: %w", identity.ErrDuplicatePerson)
	}

	now := s.now().UTC()
	p := models.Person{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
	}
	s.persons[p.ID] = p
	s.byName[key] = p.ID
	s.order = append(s.order, p.ID)

	for _, e := range embeddings {
		s.seq++
		s.embeddings = append(s.embeddings, models.FaceEmbedding{
			ID:        uuid.New(),
			Seq:       s.seq,
			PersonID:  p.ID,
			Embedding: append([]float32(nil), e.Vector...),
			SourceKey: e.SourceKey,
			CreatedAt: now,
		})
	}
	return &p, nil
}

func (s *MemoryStore) CountFaces(_ context.Context, personID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, fe := range s.embeddings {
		if fe.PersonID == personID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListFaceEmbeddings(_ context.Context, personID uuid.UUID) ([]models.FaceEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var faces []models.FaceEmbedding
	for _, fe := range s.embeddings {
		if fe.PersonID == personID {
			fe.Embedding = nil
			faces = append(faces, fe)
		}
	}
	return faces, nil
}

func (s *MemoryStore) KnownFaces(_ context.Context) ([]models.KnownFace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	faces := make([]models.KnownFace, 0, len(s.embeddings))
	for _, fe := range s.embeddings {
		p := s.persons[fe.PersonID]
		faces = append(faces, models.KnownFace{
			Seq:       fe.Seq,
			PersonID:  fe.PersonID,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Embedding: fe.Embedding,
		})
	}
	return faces, nil
}

func (s *MemoryStore) RecordAttendance(_ context.Context, entry *models.AttendanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.persons[entry.PersonID]; !ok {
		return fmt.Errorf("record attendance: unknown person %s", entry.PersonID)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.now().UTC()
	s.attendance = append(s.attendance, *entry)
	return nil
}

func (s *MemoryStore) LastAttendance(_ context.Context, personID uuid.UUID) (*models.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *models.AttendanceEntry
	for i := range s.attendance {
		e := s.attendance[i]
		if e.PersonID != personID {
			continue
		}
		if last == nil || !e.Timestamp.Before(last.Timestamp) {
			last = &e
		}
	}
	return last, nil
}

func (s *MemoryStore) record(e models.AttendanceEntry) models.AttendanceRecord {
	p := s.persons[e.PersonID]
	return models.AttendanceRecord{AttendanceEntry: e, FirstName: p.FirstName, LastName: p.LastName}
}

func (s *MemoryStore) GetAttendance(_ context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.attendance {
		if e.ID == id {
			r := s.record(e)
			return &r, nil
		}
	}
	return nil, nil
}

// QueryAttendance returns matching entries newest first, like the SQL store.
func (s *MemoryStore) QueryAttendance(_ context.Context, q models.AttendanceQuery) ([]models.AttendanceRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.AttendanceRecord
	for i := len(s.attendance) - 1; i >= 0; i-- {
		e := s.attendance[i]
		if q.PersonID != nil && e.PersonID != *q.PersonID {
			continue
		}
		if q.From != nil && e.Timestamp.Before(*q.From) {
			continue
		}
		if q.To != nil && e.Timestamp.After(*q.To) {
			continue
		}
		matched = append(matched, s.record(e))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := len(matched)
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + clampLimit(q.Limit)
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil)
