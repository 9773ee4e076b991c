package rjq

import "errors"

var (
	// ErrNotFound is returned by Status and Result when the job record is
	// missing: either the id was never enqueued on this queue or the record's
	// TTL has expired.
	ErrNotFound = errors.New("rjq: job not found")

	// ErrJobLost is the panic value raised by Work when a job ends LOST and
	// WorkOptions.FatalOnLost is set.
	ErrJobLost = errors.New("rjq: job lost")
)
