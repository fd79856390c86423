// Package queue provides the single-worker priority queue that
// serializes all terminal access.
//
// # Overview
//
// Many producers (a root session plus any number of nested child
// sessions) emit terminal work concurrently: log lines, prompts,
// blocking computations. The terminal is one physical resource, so this
// package funnels every piece of work through exactly one worker
// goroutine. It provides:
//   - Priority-based scheduling (two-field level/class priorities)
//   - FIFO ordering between jobs of equal priority
//   - Idle notification (wait until everything has drained)
//   - Discard semantics (pending jobs are rejected, not forgotten)
//
// # Architecture
//
// The package consists of composable parts:
//
//   - Priority: two-field priority compared lexicographically
//   - Job: one unit of work with a completion channel
//   - Queue: heap-ordered store plus the single worker that drains it
//
// # Example
//
//	q := queue.New()
//	defer q.Close()
//
//	job, err := q.Add(ctx, func(ctx context.Context) error {
//	    return writeBanner(ctx)
//	}, queue.WithPriority(queue.Priority{Level: 1000, Class: 20}))
//	if err != nil {
//	    return err
//	}
//	if err := job.Wait(ctx); err != nil {
//	    return err
//	}
package queue
