// rjq-produce enqueues a batch of jobs, waits for workers to get through
// them and prints each job's final status and result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/neurophant/rjq"
)

func main() {
	url := flag.String("url", "redis://localhost:6379", "Redis URL")
	name := flag.String("queue", "rjq", "Queue name")
	count := flag.Int("n", 10, "Number of jobs to enqueue")
	expire := flag.Duration("expire", 30*time.Second, "TTL of unclaimed jobs")
	wait := flag.Duration("wait", 10*time.Second, "How long to wait before reading results")
	flag.Parse()

	queue, err := rjq.New(*url, *name)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	ids := make([]string, 0, *count)
	for i := 0; i < *count; i++ {
		time.Sleep(100 * time.Millisecond)
		id, err := queue.Enqueue(ctx, nil, *expire)
		if err != nil {
			log.Fatal(err)
		}
		ids = append(ids, id)
	}

	time.Sleep(*wait)

	for _, id := range ids {
		status, err := queue.Status(ctx, id)
		if err != nil {
			status = rjq.StatusFailed
		}
		result, err := queue.Result(ctx, id)
		if err != nil {
			result = ""
		}
		fmt.Printf("%s %s %s\n", id, status, result)
	}
}
