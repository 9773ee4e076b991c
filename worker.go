package rjq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessFunc is the user-supplied processing logic. It receives the job id
// and args and returns the job result. Once started it is never cancelled;
// if it outlives the worker's timeout the job is marked LOST and any late
// return value is discarded.
type ProcessFunc func(id string, args []string) (string, error)

// WorkOptions tunes one call to Work. Zero fields fall back to the defaults
// noted below.
type WorkOptions struct {
	// Wait bounds each blocking pop on the pending list. Default 1s.
	Wait time.Duration
	// Timeout is the wall-clock budget for one job's processing. Default 30s.
	Timeout time.Duration
	// PollFrequency is how many times per second the loop checks for a
	// completion signal while a job runs. Default 10.
	PollFrequency int
	// ResultExpire is the TTL of the record once the job reaches a terminal
	// state. While the job runs the record's TTL is Timeout+ResultExpire.
	// Default 1m.
	ResultExpire time.Duration
	// FatalOnLost makes the worker panic with ErrJobLost after persisting a
	// LOST record. Fail-fast policy for callers that cannot tolerate lost
	// jobs.
	FatalOnLost bool
	// Repeat keeps the loop pulling jobs until ctx is cancelled. When false,
	// Work returns after the first pop, whether or not it yielded a job.
	Repeat bool
}

func (o *WorkOptions) applyDefaults() {
	if o.Wait <= 0 {
		o.Wait = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.PollFrequency <= 0 {
		o.PollFrequency = 10
	}
	if o.ResultExpire <= 0 {
		o.ResultExpire = time.Minute
	}
}

type outcome struct {
	status Status
	result string
}

// Work pulls job ids off the pending list and processes them with fn. Each
// claimed job is marked RUNNING, fn runs on its own goroutine, and the loop
// polls for its outcome until Timeout elapses. Jobs end FINISHED with fn's
// result, FAILED with an empty result, or LOST when the poll budget runs out.
//
// A popped id whose record already expired is skipped, not an error. Work
// returns when ctx is cancelled, when Repeat is false after one pop, or on a
// Redis or decode failure.
func (q *Queue) Work(ctx context.Context, opts WorkOptions, fn ProcessFunc) error {
	opts.applyDefaults()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		vals, err := q.client.BLPop(ctx, opts.Wait, q.listKey()).Result()
		if errors.Is(err, redis.Nil) {
			if !opts.Repeat {
				return nil
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rjq: pop job id: %w", err)
		}

		// BLPop replies [key, value].
		id := vals[len(vals)-1]
		job, err := q.load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// The record expired between enqueue and claim. The id is
			// unrecoverable, nothing to report it against.
			q.log.Warn("job record expired before claim",
				slog.String("queue", q.name),
				slog.String("job_id", id),
			)
			if !opts.Repeat {
				return nil
			}
			continue
		}
		if err != nil {
			return err
		}

		if err := q.runJob(ctx, job, opts, fn); err != nil {
			return err
		}
		if !opts.Repeat {
			return nil
		}
	}
}

// runJob supervises a single claimed job: persist RUNNING, launch fn, poll
// for the completion signal, persist the terminal state.
func (q *Queue) runJob(ctx context.Context, job Job, opts WorkOptions, fn ProcessFunc) error {
	job.Status = StatusRunning
	if err := q.persist(ctx, job, opts.Timeout+opts.ResultExpire); err != nil {
		return err
	}
	q.log.Info("job claimed",
		slog.String("queue", q.name),
		slog.String("job_id", job.UUID),
	)
	q.record(ctx, job, Recorder.JobStarted)

	// Buffered so a late completion after we stop polling does not leak the
	// processing goroutine.
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(job.UUID, job.Args)
		if err != nil {
			done <- outcome{status: StatusFailed}
			return
		}
		done <- outcome{status: StatusFinished, result: res}
	}()

	interval := time.Second / time.Duration(opts.PollFrequency)
	polls := int(opts.Timeout / interval)
	for i := 0; i < polls; i++ {
		select {
		case out := <-done:
			job.Status = out.status
			job.Result = out.result
		default:
		}
		if job.Status != StatusRunning {
			break
		}
		time.Sleep(interval)
	}
	if job.Status == StatusRunning {
		job.Status = StatusLost
	}

	if err := q.persist(ctx, job, opts.ResultExpire); err != nil {
		return err
	}

	switch job.Status {
	case StatusLost:
		q.log.Error("job lost",
			slog.String("queue", q.name),
			slog.String("job_id", job.UUID),
			slog.Duration("timeout", opts.Timeout),
		)
	case StatusFailed:
		q.log.Warn("job failed",
			slog.String("queue", q.name),
			slog.String("job_id", job.UUID),
		)
	default:
		q.log.Info("job finished",
			slog.String("queue", q.name),
			slog.String("job_id", job.UUID),
		)
	}
	q.record(ctx, job, Recorder.JobEnded)

	if opts.FatalOnLost && job.Status == StatusLost {
		panic(fmt.Errorf("%w: %s", ErrJobLost, job.UUID))
	}
	return nil
}
