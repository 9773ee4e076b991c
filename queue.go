package rjq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Recorder receives job lifecycle notifications for auditing. Recorder
// failures never affect the queue protocol; they are logged and dropped.
// Implementations must be safe for concurrent use.
type Recorder interface {
	JobEnqueued(ctx context.Context, job Job) error
	JobStarted(ctx context.Context, job Job) error
	JobEnded(ctx context.Context, job Job) error
}

// Queue coordinates producers and workers over a shared Redis instance.
// All state lives in Redis under two keys: <name>:uuids, a FIFO list of
// pending job ids, and <name>:<uuid>, one JSON record per job with a TTL on
// every write.
type Queue struct {
	client *redis.Client
	name   string
	log    *slog.Logger
	rec    Recorder
}

// Option configures a Queue.
type Option func(*Queue)

// WithClient binds the queue to an existing Redis client instead of opening
// one from the URL passed to New.
func WithClient(c *redis.Client) Option {
	return func(q *Queue) { q.client = c }
}

// WithLogger sets the logger used by the worker loop. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithRecorder attaches a lifecycle recorder invoked on enqueue, claim and
// terminal transitions.
func WithRecorder(r Recorder) Option {
	return func(q *Queue) { q.rec = r }
}

// New builds a queue bound to the Redis instance at url and the given queue
// name. No I/O happens here; the underlying connection pool dials lazily on
// first use.
func New(url, name string, opts ...Option) (*Queue, error) {
	q := &Queue{name: name, log: slog.Default()}
	for _, opt := range opts {
		opt(q)
	}
	if q.client == nil {
		ropt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("rjq: parse redis url: %w", err)
		}
		q.client = redis.NewClient(ropt)
	}
	return q, nil
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

func (q *Queue) jobKey(id string) string { return q.name + ":" + id }

func (q *Queue) listKey() string { return q.name + ":uuids" }

// Enqueue creates a job with the given args, writes its record with a TTL of
// expire and pushes the id onto the pending list. It returns the generated
// job id.
//
// The record write and the list push are two separate Redis commands. A crash
// between them leaves a record that is never claimed and expires on its own.
func (q *Queue) Enqueue(ctx context.Context, args []string, expire time.Duration) (string, error) {
	if expire <= 0 {
		return "", errors.New("rjq: expire must be positive")
	}

	job := newJob(args)
	data, err := encodeJob(job)
	if err != nil {
		return "", err
	}

	if err := q.client.Set(ctx, q.jobKey(job.UUID), data, expire).Err(); err != nil {
		return "", fmt.Errorf("rjq: write job record: %w", err)
	}
	if err := q.client.RPush(ctx, q.listKey(), job.UUID).Err(); err != nil {
		return "", fmt.Errorf("rjq: push job id: %w", err)
	}

	q.record(ctx, job, Recorder.JobEnqueued)
	return job.UUID, nil
}

// Status returns the current lifecycle state of the job with the given id.
// It returns ErrNotFound if the record is missing or has expired.
func (q *Queue) Status(ctx context.Context, id string) (Status, error) {
	job, err := q.load(ctx, id)
	if err != nil {
		return "", err
	}
	return job.Status, nil
}

// Result returns the job's result string. It is empty unless the job is
// FINISHED. It returns ErrNotFound if the record is missing or has expired.
func (q *Queue) Result(ctx context.Context, id string) (string, error) {
	job, err := q.load(ctx, id)
	if err != nil {
		return "", err
	}
	return job.Result, nil
}

// Drop deletes the pending id list. Ids pushed before the drop can no longer
// be claimed; their records are untouched and expire naturally. Jobs already
// claimed by a worker are not cancelled.
func (q *Queue) Drop(ctx context.Context) error {
	if err := q.client.Del(ctx, q.listKey()).Err(); err != nil {
		return fmt.Errorf("rjq: drop pending list: %w", err)
	}
	return nil
}

func (q *Queue) load(ctx context.Context, id string) (Job, error) {
	data, err := q.client.Get(ctx, q.jobKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("rjq: read job record: %w", err)
	}
	return decodeJob(data)
}

func (q *Queue) persist(ctx context.Context, job Job, ttl time.Duration) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}
	if err := q.client.Set(ctx, q.jobKey(job.UUID), data, ttl).Err(); err != nil {
		return fmt.Errorf("rjq: write job record: %w", err)
	}
	return nil
}

func (q *Queue) record(ctx context.Context, job Job, notify func(Recorder, context.Context, Job) error) {
	if q.rec == nil {
		return
	}
	if err := notify(q.rec, ctx, job); err != nil {
		q.log.Warn("job recorder failed",
			slog.String("queue", q.name),
			slog.String("job_id", job.UUID),
			slog.String("error", err.Error()),
		)
	}
}
