package rjq

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a job. Valid transitions are
// QUEUED -> RUNNING -> FINISHED | FAILED | LOST; every other state is stable
// once observed.
type Status string

const (
	// StatusQueued means the job is enqueued and waiting for a worker.
	StatusQueued Status = "QUEUED"
	// StatusRunning means a worker has claimed the job and processing is
	// underway.
	StatusRunning Status = "RUNNING"
	// StatusLost means processing did not report completion within the
	// worker's timeout. The processing function may still be running
	// unobserved.
	StatusLost Status = "LOST"
	// StatusFinished means processing returned a result.
	StatusFinished Status = "FINISHED"
	// StatusFailed means processing returned an error.
	StatusFailed Status = "FAILED"
)

// Job is the persisted record for one unit of work, stored in Redis as JSON
// under <queue>:<uuid>. Result is always present in the encoded form and
// stays empty until the job finishes successfully.
type Job struct {
	UUID   string   `json:"uuid"`
	Status Status   `json:"status"`
	Args   []string `json:"args"`
	Result string   `json:"result"`
}

func newJob(args []string) Job {
	if args == nil {
		args = []string{}
	}
	return Job{
		UUID:   uuid.NewString(),
		Status: StatusQueued,
		Args:   args,
	}
}

func encodeJob(j Job) (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("rjq: encode job: %w", err)
	}
	return string(b), nil
}

func decodeJob(data string) (Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return Job{}, fmt.Errorf("rjq: decode job: %w", err)
	}
	return j, nil
}
