package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the vector extension and tables if they don't exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Persons ---

func (s *PostgresStore) FindPerson(ctx context.Context, firstName, lastName string) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, created_at FROM persons WHERE first_name = $1 AND last_name = $2`,
		firstName, lastName,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, id uuid.UUID) (*models.Person, error) {
	p := &models.Person{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, created_at FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &p.FirstName, &p.LastName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, first_name, last_name, created_at FROM persons ORDER BY created_at, last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// EnrollPerson inserts the person and every embedding in one transaction.
func (s *PostgresStore) EnrollPerson(ctx context.Context, firstName, lastName string, embeddings []identity.NewEmbedding) (*models.Person, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	p := &models.Person{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO persons (id, first_name, last_name) VALUES ($1, $2, $3) RETURNING created_at`,
		p.ID, p.FirstName, p.LastName,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("create person: %w", identity.ErrDuplicatePerson)
		}
		return nil, fmt.Errorf("create person: %w", err)
	}

	for _, e := range embeddings {
		_, err := tx.Exec(ctx,
			`INSERT INTO face_embeddings (id, person_id, embedding, source_key) VALUES ($1, $2, $3, $4)`,
			uuid.New(), p.ID, pgvector.NewVector(e.Vector), e.SourceKey)
		if err != nil {
			return nil, fmt.Errorf("add face embedding: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return p, nil
}

// --- Face Embeddings ---

func (s *PostgresStore) CountFaces(ctx context.Context, personID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM face_embeddings WHERE person_id = $1`, personID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStore) ListFaceEmbeddings(ctx context.Context, personID uuid.UUID) ([]models.FaceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT seq, id, person_id, source_key, created_at FROM face_embeddings WHERE person_id = $1 ORDER BY seq`,
		personID)
	if err != nil {
		return nil, fmt.Errorf("list face embeddings: %w", err)
	}
	defer rows.Close()

	var faces []models.FaceEmbedding
	for rows.Next() {
		var fe models.FaceEmbedding
		if err := rows.Scan(&fe.Seq, &fe.ID, &fe.PersonID, &fe.SourceKey, &fe.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		faces = append(faces, fe)
	}
	return faces, rows.Err()
}

// KnownFaces reads every embedding with its owner in insertion order. A
// single statement sees one snapshot, so concurrent enrollments are either
// fully visible or not at all.
func (s *PostgresStore) KnownFaces(ctx context.Context) ([]models.KnownFace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT fe.seq, fe.person_id, p.first_name, p.last_name, fe.embedding
		 FROM face_embeddings fe
		 JOIN persons p ON p.id = fe.person_id
		 ORDER BY fe.seq`)
	if err != nil {
		return nil, fmt.Errorf("query known faces: %w", err)
	}
	defer rows.Close()

	var faces []models.KnownFace
	for rows.Next() {
		var kf models.KnownFace
		var vec pgvector.Vector
		if err := rows.Scan(&kf.Seq, &kf.PersonID, &kf.FirstName, &kf.LastName, &vec); err != nil {
			return nil, fmt.Errorf("scan known face: %w", err)
		}
		kf.Embedding = vec.Slice()
		faces = append(faces, kf)
	}
	return faces, rows.Err()
}

// --- Attendance ---

func (s *PostgresStore) RecordAttendance(ctx context.Context, entry *models.AttendanceEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance (id, person_id, timestamp, confidence, snapshot_key, probe_key)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		entry.ID, entry.PersonID, entry.Timestamp, entry.Confidence, entry.SnapshotKey, entry.ProbeKey,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastAttendance(ctx context.Context, personID uuid.UUID) (*models.AttendanceEntry, error) {
	var e models.AttendanceEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, person_id, timestamp, confidence, snapshot_key, probe_key, created_at
		 FROM attendance WHERE person_id = $1 ORDER BY timestamp DESC, created_at DESC LIMIT 1`, personID,
	).Scan(&e.ID, &e.PersonID, &e.Timestamp, &e.Confidence, &e.SnapshotKey, &e.ProbeKey, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last attendance: %w", err)
	}
	return &e, nil
}

const attendanceColumns = `a.id, a.person_id, a.timestamp, a.confidence, a.snapshot_key, a.probe_key, a.created_at, p.first_name, p.last_name`

func scanAttendance(row pgx.Row, r *models.AttendanceRecord) error {
	return row.Scan(&r.ID, &r.PersonID, &r.Timestamp, &r.Confidence, &r.SnapshotKey, &r.ProbeKey, &r.CreatedAt,
		&r.FirstName, &r.LastName)
}

func (s *PostgresStore) GetAttendance(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	var r models.AttendanceRecord
	row := s.pool.QueryRow(ctx,
		`SELECT `+attendanceColumns+` FROM attendance a JOIN persons p ON p.id = a.person_id WHERE a.id = $1`, id)
	if err := scanAttendance(row, &r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) QueryAttendance(ctx context.Context, q models.AttendanceQuery) ([]models.AttendanceRecord, int, error) {
	limit := clampLimit(q.Limit)

	baseWhere := "WHERE TRUE"
	var args []interface{}
	argIdx := 1

	if q.PersonID != nil {
		baseWhere += fmt.Sprintf(" AND a.person_id = $%d", argIdx)
		args = append(args, *q.PersonID)
		argIdx++
	}
	if q.From != nil {
		baseWhere += fmt.Sprintf(" AND a.timestamp >= $%d", argIdx)
		args = append(args, *q.From)
		argIdx++
	}
	if q.To != nil {
		baseWhere += fmt.Sprintf(" AND a.timestamp <= $%d", argIdx)
		args = append(args, *q.To)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM attendance a " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM attendance a JOIN persons p ON p.id = a.person_id %s
		 ORDER BY a.timestamp DESC, a.created_at DESC LIMIT $%d OFFSET $%d`,
		attendanceColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, q.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		if err := scanAttendance(rows, &r); err != nil {
			return nil, 0, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

// Reset drops every table. Used by the CLI for development databases.
func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DROP TABLE IF EXISTS attendance CASCADE;
		DROP TABLE IF EXISTS face_embeddings CASCADE;
		DROP TABLE IF EXISTS persons CASCADE;
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
