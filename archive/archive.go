// Package archive persists copies of job lifecycle records in a relational
// database for auditing. It is an optional side channel: the queue protocol
// itself lives entirely in Redis, and nothing here adds delivery or
// durability guarantees.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neurophant/rjq"
)

// ErrNotFound is returned by GetByID when no row exists for the id.
var ErrNotFound = errors.New("archive: record not found")

// Schema creates the archive table. Written for sqlite but portable to
// MySQL/Postgres with the usual type renames.
const Schema = `
CREATE TABLE IF NOT EXISTS rjq_jobs (
    id          VARCHAR(64) PRIMARY KEY,
    queue       VARCHAR(64) NOT NULL,
    args_json   TEXT        NOT NULL,
    status      VARCHAR(16) NOT NULL,
    result      TEXT        NULL,
    enqueued_at DATETIME    NOT NULL,
    started_at  DATETIME    NULL,
    ended_at    DATETIME    NULL
);
`

// Record is one archived job lifecycle row.
type Record struct {
	ID         string
	Queue      string
	ArgsJSON   string
	Status     string
	Result     *string // set only for finished jobs
	EnqueuedAt time.Time
	StartedAt  *time.Time
	EndedAt    *time.Time
}

// Store abstracts archive persistence. Implementations must be safe for
// concurrent use.
type Store interface {
	InsertEnqueued(ctx context.Context, rec Record) error
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	MarkEnded(ctx context.Context, id string, status string, result *string, endedAt time.Time) error
	GetByID(ctx context.Context, id string) (*Record, error)
}

// SQLStore is a Store backed by database/sql. Queries are issued with '?'
// placeholders first and retried with '$n' placeholders so the same code
// runs against sqlite/MySQL and Postgres drivers.
type SQLStore struct {
	db    *sql.DB
	queue string
}

// NewSQLStore returns a store writing rows tagged with the given queue name.
func NewSQLStore(db *sql.DB, queue string) *SQLStore {
	return &SQLStore{db: db, queue: queue}
}

var _ rjq.Recorder = (*SQLStore)(nil)

// JobEnqueued implements rjq.Recorder.
func (s *SQLStore) JobEnqueued(ctx context.Context, job rjq.Job) error {
	args, err := json.Marshal(job.Args)
	if err != nil {
		return fmt.Errorf("archive: encode args: %w", err)
	}
	return s.InsertEnqueued(ctx, Record{
		ID:         job.UUID,
		Queue:      s.queue,
		ArgsJSON:   string(args),
		Status:     string(job.Status),
		EnqueuedAt: time.Now().UTC(),
	})
}

// JobStarted implements rjq.Recorder.
func (s *SQLStore) JobStarted(ctx context.Context, job rjq.Job) error {
	return s.MarkRunning(ctx, job.UUID, time.Now().UTC())
}

// JobEnded implements rjq.Recorder.
func (s *SQLStore) JobEnded(ctx context.Context, job rjq.Job) error {
	var result *string
	if job.Status == rjq.StatusFinished {
		r := job.Result
		result = &r
	}
	return s.MarkEnded(ctx, job.UUID, string(job.Status), result, time.Now().UTC())
}

func (s *SQLStore) InsertEnqueued(ctx context.Context, rec Record) error {
	if s.db == nil {
		return errors.New("archive: nil db")
	}
	q := `INSERT INTO rjq_jobs (id, queue, args_json, status, enqueued_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, rec.ID, rec.Queue, rec.ArgsJSON, rec.Status, rec.EnqueuedAt.UTC())
	if err != nil {
		qpg := `INSERT INTO rjq_jobs (id, queue, args_json, status, enqueued_at) VALUES ($1, $2, $3, $4, $5)`
		_, err2 := s.db.ExecContext(ctx, qpg, rec.ID, rec.Queue, rec.ArgsJSON, rec.Status, rec.EnqueuedAt.UTC())
		return err2
	}
	return nil
}

func (s *SQLStore) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	if s.db == nil {
		return errors.New("archive: nil db")
	}
	q := `UPDATE rjq_jobs SET status = ?, started_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, string(rjq.StatusRunning), startedAt.UTC(), id)
	if err != nil {
		qpg := `UPDATE rjq_jobs SET status = $1, started_at = $2 WHERE id = $3`
		_, err2 := s.db.ExecContext(ctx, qpg, string(rjq.StatusRunning), startedAt.UTC(), id)
		return err2
	}
	return nil
}

func (s *SQLStore) MarkEnded(ctx context.Context, id string, status string, result *string, endedAt time.Time) error {
	if s.db == nil {
		return errors.New("archive: nil db")
	}
	q := `UPDATE rjq_jobs SET status = ?, result = ?, ended_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, status, result, endedAt.UTC(), id)
	if err != nil {
		qpg := `UPDATE rjq_jobs SET status = $1, result = $2, ended_at = $3 WHERE id = $4`
		_, err2 := s.db.ExecContext(ctx, qpg, status, result, endedAt.UTC(), id)
		return err2
	}
	return nil
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*Record, error) {
	if s.db == nil {
		return nil, errors.New("archive: nil db")
	}
	q := `SELECT id, queue, args_json, status, result, enqueued_at, started_at, ended_at FROM rjq_jobs WHERE id = ?`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		qpg := `SELECT id, queue, args_json, status, result, enqueued_at, started_at, ended_at FROM rjq_jobs WHERE id = $1`
		return scanRecord(s.db.QueryRowContext(ctx, qpg, id))
	}
	return rec, err
}

func scanRecord(row *sql.Row) (*Record, error) {
	rec := Record{}
	var result sql.NullString
	var startedAt, endedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.Queue, &rec.ArgsJSON, &rec.Status, &result, &rec.EnqueuedAt, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if result.Valid {
		v := result.String
		rec.Result = &v
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		rec.EndedAt = &t
	}
	return &rec, nil
}
