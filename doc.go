// Package rjq is a small Redis-backed job queue: producers enqueue jobs and
// read back status and result by id, workers pull jobs off the queue, run a
// user-supplied function and publish the outcome through the same Redis
// instance. There is no coordinator beyond Redis itself.
//
// Enqueue jobs:
//
//	q, err := rjq.New("redis://localhost:6379", "rjq")
//	if err != nil {
//		log.Fatal(err)
//	}
//	id, err := q.Enqueue(ctx, []string{"alice"}, 30*time.Second)
//	...
//	status, err := q.Status(ctx, id)
//	result, err := q.Result(ctx, id)
//
// Work on jobs:
//
//	err := q.Work(ctx, rjq.WorkOptions{
//		Wait:          time.Second,
//		Timeout:       5 * time.Second,
//		PollFrequency: 10,
//		ResultExpire:  30 * time.Second,
//		Repeat:        true,
//	}, func(id string, args []string) (string, error) {
//		return "hi from " + id, nil
//	})
//
// Every record written to Redis carries a TTL, so unclaimed jobs and old
// results expire on their own. A job whose processing outlives the worker's
// timeout is marked LOST; the processing function is never forcibly stopped,
// so LOST means "gave up waiting", not "killed".
package rjq
