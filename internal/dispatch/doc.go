// Package dispatch multiplexes terminal I/O from a tree of sessions
// onto one physical terminal.
//
// # Overview
//
// A Dispatcher is one logical session: the root, or a nested child
// spawned from any existing instance. Every dispatcher in a tree shares
// a single priority queue and a single terminal adapter, and every
// adapter interaction (prompt, blocking computation, log line) is
// wrapped in a queued job, so the terminal is never touched by two
// producers at once, no matter how many goroutines submit work.
//
// Execution order is decided by a two-field priority:
//
//   - the submitting session's level (band), where children always sit
//     strictly below their parent, so a parent's pending output
//     preempts anything a descendant has queued
//   - the operation class within a level, where log output ranks above
//     prompts, and prompts above blocking work, so log lines are never
//     starved behind a long computation
//
// Equal priorities run in submission order.
//
// # Architecture
//
//   - Dispatcher: session instance; submits jobs, spawns children,
//     owns the shared resources when it is the root
//   - Logger: deferred logging handle; calls return immediately and the
//     write happens when its job is dequeued
//   - Progress: policy layer that shows a live bar only when the
//     terminal is quiet, and otherwise just runs the work
//
// # Example
//
//	root := dispatch.New(term.NewConsole())
//	defer root.Close()
//
//	child, err := root.SpawnChild()
//	if err != nil {
//	    return err
//	}
//
//	child.Log().Info("child session started")
//	err = child.RunBlocking(ctx, func(ctx context.Context, t term.Adapter) error {
//	    return t.Logf("finished %d steps", steps)
//	})
package dispatch
