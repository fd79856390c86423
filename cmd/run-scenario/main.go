// Command run-scenario replays a YAML session tree through a real
// dispatcher hierarchy, for eyeballing how output gets scheduled.
//
// Usage:
//
//	run-scenario -f testdata/smoke.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/billie-coop/switchyard/internal/dispatch"
	"github.com/billie-coop/switchyard/internal/progress"
	"github.com/billie-coop/switchyard/internal/term"
	"golang.org/x/sync/errgroup"
)

func main() {
	file := flag.String("f", "scenario.yaml", "scenario file to run")
	verbose := flag.Bool("verbose", false, "show debug output")
	flag.Parse()

	if err := run(*file, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, verbose bool) error {
	scenario, err := LoadScenario(file)
	if err != nil {
		return err
	}

	ctx := context.Background()
	console := term.NewConsole(term.WithVerbose(verbose))
	display := progress.NewDisplay()

	opts := []dispatch.Option{dispatch.WithDisplay(dispatch.NewLiveDisplay(display))}
	if scenario.Session.Level != 0 {
		opts = append(opts, dispatch.WithLevel(scenario.Session.Level))
	}
	root := dispatch.New(console, opts...)
	defer root.Close()

	root.Log().Logf("▶ scenario %q", scenario.Name)

	if err := runSession(ctx, root, &scenario.Session); err != nil {
		return err
	}
	if err := root.WaitIdle(ctx); err != nil {
		return err
	}

	m := root.Metrics()
	root.Log().Logf("▪ %d executed, %d failed, %d discarded, avg wait %s, avg run %s",
		m.Executed, m.Failed, m.Discarded,
		m.AvgWait.Round(time.Millisecond), m.AvgRun.Round(time.Millisecond))

	if err := root.WaitIdle(ctx); err != nil {
		return err
	}
	return root.Close()
}

// runSession plays a session's jobs in order while its children run
// concurrently, each on its own child dispatcher.
func runSession(ctx context.Context, d *dispatch.Dispatcher, s *Session) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := range s.Children {
		child := &s.Children[i]

		var opts []dispatch.ChildOption
		if child.Level != 0 {
			opts = append(opts, dispatch.WithChildLevel(child.Level))
		}
		cd, err := d.SpawnChild(opts...)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", child.Name, err)
		}

		g.Go(func() error {
			defer cd.Close()
			return runSession(ctx, cd, child)
		})
	}

	for i := range s.Jobs {
		if err := runJob(ctx, d, s.Name, &s.Jobs[i]); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}

	return g.Wait()
}

// runJob executes one scripted job on the session's dispatcher.
func runJob(ctx context.Context, d *dispatch.Dispatcher, session string, job *JobSpec) error {
	switch job.Kind {
	case kindLog:
		d.Log().Logf("[%s] %s", session, job.Message)
		return nil

	case kindBlocking:
		return d.RunBlocking(ctx, func(ctx context.Context, a term.Adapter) error {
			if err := sleep(ctx, time.Duration(job.Duration)); err != nil {
				return err
			}
			return a.Logf("[%s] %s", session, job.Message)
		})

	case kindProgress:
		steps := job.Steps
		if steps <= 0 {
			steps = 1
		}
		total := int64(steps) * dispatch.StepUnits
		return d.Progress(ctx, job.Message, func(step dispatch.Step) error {
			for i := 1; i <= steps; i++ {
				if err := sleep(ctx, time.Duration(job.Duration)); err != nil {
					return err
				}
				step(job.Message, fmt.Sprintf("%d/%d", i, steps))
			}
			return nil
		}, dispatch.WithTotal(total))

	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

// sleep waits out d, or returns early when ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
