package dispatch

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestLoggerDefersUntilWorkerReaches(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	release, gateDone := startGate(t, root)

	logger := root.Log()
	if got := logger.Info("queued behind gate"); got != logger {
		t.Error("Info must return the receiver for chaining")
	}

	// The call returned, the write did not happen yet.
	if calls := adapter.callNames(); len(calls) != 0 {
		t.Fatalf("write ran before the worker reached it: %v", calls)
	}

	close(release)
	if err := <-gateDone; err != nil {
		t.Fatalf("gate job failed: %v", err)
	}
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	want := []string{"info queued behind gate"}
	if got := adapter.callNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

func TestLoggerMirrorsAdapterSurface(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	root.Log().
		Log("plain").
		Logf("%s-%d", "fmt", 7).
		Info("note").
		Warn("careful").
		Error("bad").
		Debug("trace").
		Write("raw").
		Markdown("# title")

	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	// Same priority throughout, so the adapter sees submission order.
	want := []string{
		"log plain",
		"logf fmt-7",
		"info note",
		"warn careful",
		"error bad",
		"debug trace",
		"write raw",
		"markdown # title",
	}
	if got := adapter.callNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls mismatch:\n  got:  %v\n  want: %v", got, want)
	}
}

func TestLoggerReportsWriteFailuresToSink(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	boom := errors.New("boom")
	adapter.failOps["warn"] = boom

	var sink bytes.Buffer
	root := New(adapter, WithErrorSink(&sink))
	defer root.Close()

	root.Log().Warn("going down")
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	report := sink.String()
	if !strings.Contains(report, "deferred warn failed") || !strings.Contains(report, "boom") {
		t.Errorf("sink report missing failure details: %q", report)
	}
	if got := root.Metrics().Failed; got != 1 {
		t.Errorf("failed job count = %d, want 1", got)
	}
}

func TestLoggerOnClosedDispatcherReportsToSink(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	var sink bytes.Buffer
	root := New(adapter, WithErrorSink(&sink))
	defer root.Close()

	child, err := root.SpawnChild()
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}
	if err := child.Close(); err != nil {
		t.Fatalf("child close: %v", err)
	}

	// Fire-and-forget against a closed session cannot return an error,
	// so it lands on the sink instead.
	child.Log().Info("too late")

	report := sink.String()
	if !strings.Contains(report, "deferred info failed") || !strings.Contains(report, "dispatcher closed") {
		t.Errorf("sink report missing closed-dispatcher details: %q", report)
	}
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	if calls := adapter.callNames(); len(calls) != 0 {
		t.Errorf("closed child still reached the adapter: %v", calls)
	}
}
