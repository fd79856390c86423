// Package main is the entry point for the switchyard showcase.
//
// It drives one console through a root dispatcher and a handful of
// concurrent child sessions, exactly the situation the scheduler
// exists for: everybody talks, one terminal listens.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/billie-coop/switchyard/internal/config"
	"github.com/billie-coop/switchyard/internal/dispatch"
	"github.com/billie-coop/switchyard/internal/progress"
	"github.com/billie-coop/switchyard/internal/term"
	"github.com/charmbracelet/lipgloss/v2"
	"golang.org/x/sync/errgroup"
)

// Style definitions for the banner.
var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

const welcome = `# One terminal, many voices

Every session below writes through a single scheduler: lines never
interleave mid-write, parent output preempts child work, and the live
bar only appears when the terminal is quiet.`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	manager := config.NewManager(cwd)
	if err := manager.Load(); err != nil {
		return err
	}
	cfg := manager.Get()

	console := term.NewConsole(
		term.WithVerbose(cfg.Verbose),
		term.WithMarkdownTheme(cfg.MarkdownTheme),
	)

	display := progress.NewDisplay()
	if !cfg.Progress {
		display.Disable()
	}

	root := dispatch.New(console,
		dispatch.WithLevel(cfg.TopLevel),
		dispatch.WithDisplay(dispatch.NewLiveDisplay(display)),
	)
	defer root.Close()

	banner := bannerStyle.Foreground(lipgloss.Color(cfg.AccentColor))
	root.Log().
		Write(banner.Render("🚦 Switchyard") + "\n").
		Markdown(welcome).
		Info("spawning three build sessions")

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= 3; i++ {
		child, err := root.SpawnChild()
		if err != nil {
			return err
		}
		g.Go(func() error {
			child.Log().Logf("session %s running at level %d", child.ID()[:8], child.Level())
			for pass := 1; pass <= 3; pass++ {
				err := child.RunBlocking(gctx, func(ctx context.Context, a term.Adapter) error {
					time.Sleep(30 * time.Millisecond) // pretend to compile something
					return a.Logf("  level %d finished pass %d/3", child.Level(), pass)
				})
				if err != nil {
					return err
				}
			}
			return child.Close()
		})
	}

	// Submitted while the children are mid-flight, lands before their
	// remaining work: the root band outranks every child band.
	root.Log().Warn("root interrupt: configuration reloaded")

	if err := g.Wait(); err != nil {
		return err
	}
	if err := root.WaitIdle(ctx); err != nil {
		return err
	}

	// A typed blocking call holds the terminal while it computes.
	artifacts, err := dispatch.Blocking(ctx, root, func(ctx context.Context, a term.Adapter) (int, error) {
		return 12, a.Log("gathering artifacts")
	})
	if err != nil {
		return err
	}
	root.Log().Logf("collected %d artifacts", artifacts)

	err = root.Progress(ctx, "indexing", func(step dispatch.Step) error {
		for shard := 1; shard <= 10; shard++ {
			time.Sleep(40 * time.Millisecond)
			step("indexed", fmt.Sprintf("shard %d/10", shard))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if console.IsInteractive() {
		answers, err := root.Prompt(ctx, []term.Question{{
			Name:    "mood",
			Message: "How does the scheduling feel?",
			Kind:    term.KindSelect,
			Options: []string{"smooth", "chaotic", "suspiciously quiet"},
			Default: "smooth",
		}}, nil)
		switch {
		case errors.Is(err, term.ErrPromptCanceled):
			root.Log().Info("no verdict, fair enough")
		case err != nil:
			return err
		default:
			root.Log().Logf("noted: %s", answers["mood"])
		}
	}

	if err := root.WaitIdle(ctx); err != nil {
		return err
	}

	m := root.Metrics()
	summary := fmt.Sprintf("%d jobs executed, %d failed, %d discarded, avg wait %s",
		m.Executed, m.Failed, m.Discarded, m.AvgWait.Round(time.Millisecond))
	root.Log().Write(dimStyle.Render(summary) + "\n")

	if err := root.WaitIdle(ctx); err != nil {
		return err
	}
	return root.Close()
}
