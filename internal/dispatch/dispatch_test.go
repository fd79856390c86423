package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/billie-coop/switchyard/internal/queue"
	"github.com/billie-coop/switchyard/internal/term"
)

// fakeAdapter records adapter calls in order and trips a flag if two
// jobs ever touch it at the same time.
type fakeAdapter struct {
	mu      sync.Mutex
	calls   []string
	answers term.Answers

	promptErr error
	failOps   map[string]error

	closes  atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{failOps: map[string]error{}}
}

func (f *fakeAdapter) record(op string, args ...any) error {
	if !f.active.CompareAndSwap(0, 1) {
		f.overlap.Store(true)
	}
	defer f.active.Store(0)

	entry := op
	if detail := strings.TrimSpace(fmt.Sprintln(args...)); detail != "" {
		entry += " " + detail
	}
	f.mu.Lock()
	f.calls = append(f.calls, entry)
	f.mu.Unlock()

	return f.failOps[op]
}

func (f *fakeAdapter) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// callIndex returns the position of the first recorded call equal to
// entry, or -1.
func (f *fakeAdapter) callIndex(entry string) int {
	for i, c := range f.callNames() {
		if c == entry {
			return i
		}
	}
	return -1
}

func (f *fakeAdapter) Prompt(ctx context.Context, questions []term.Question, initial term.Answers) (term.Answers, error) {
	if err := f.record("prompt"); err != nil {
		return nil, err
	}
	if f.promptErr != nil {
		return nil, f.promptErr
	}
	return f.answers, nil
}

func (f *fakeAdapter) Log(args ...any) error  { return f.record("log", args...) }
func (f *fakeAdapter) Logf(format string, args ...any) error {
	return f.record("logf", fmt.Sprintf(format, args...))
}
func (f *fakeAdapter) Info(args ...any) error  { return f.record("info", args...) }
func (f *fakeAdapter) Warn(args ...any) error  { return f.record("warn", args...) }
func (f *fakeAdapter) Error(args ...any) error { return f.record("error", args...) }
func (f *fakeAdapter) Debug(args ...any) error { return f.record("debug", args...) }
func (f *fakeAdapter) Write(s string) error    { return f.record("write", s) }
func (f *fakeAdapter) Markdown(s string) error { return f.record("markdown", s) }

func (f *fakeAdapter) Close() error {
	f.closes.Add(1)
	return nil
}

// startGate parks the shared worker on a blocking job until release is
// closed, so tests can pile up pending jobs deterministically.
func startGate(t *testing.T, d *Dispatcher) (release chan struct{}, done chan error) {
	t.Helper()

	release = make(chan struct{})
	started := make(chan struct{})
	done = make(chan error, 1)

	go func() {
		done <- d.RunBlocking(context.Background(), func(ctx context.Context, _ term.Adapter) error {
			close(started)
			<-release
			return nil
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the gate job")
	}

	return release, done
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPromptReturnsAdapterAnswers(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	adapter.answers = term.Answers{"name": "switchyard"}
	root := New(adapter)
	defer root.Close()

	got, err := root.Prompt(context.Background(), []term.Question{{Name: "name", Message: "Name?"}}, nil)
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if got["name"] != "switchyard" {
		t.Errorf("answers mismatch:\n  got:  %v\n  want: %v", got, adapter.answers)
	}
}

func TestPromptPropagatesAdapterError(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	adapter.promptErr = term.ErrPromptCanceled
	root := New(adapter)
	defer root.Close()

	_, err := root.Prompt(context.Background(), []term.Question{{Name: "q", Message: "?"}}, nil)
	if !errors.Is(err, term.ErrPromptCanceled) {
		t.Errorf("prompt error must propagate unchanged, got %v", err)
	}
}

func TestParentLogPreemptsChildWork(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	child, err := root.SpawnChild()
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}
	grandchild, err := child.SpawnChild()
	if err != nil {
		t.Fatalf("spawn grandchild: %v", err)
	}

	release, gateDone := startGate(t, root)

	// Deepest work queued first, while the worker is parked.
	gcDone := make(chan error, 1)
	go func() {
		gcDone <- grandchild.RunBlocking(context.Background(), func(ctx context.Context, a term.Adapter) error {
			return a.Log("grandchild-blocking")
		})
	}()
	waitFor(t, "grandchild job to queue", func() bool { return root.QueueSize() == 1 })

	// Ancestor output submitted later still runs first.
	child.Log().Info("child-log")
	root.Log().Info("root-log")

	close(release)
	if err := <-gateDone; err != nil {
		t.Fatalf("gate job failed: %v", err)
	}
	if err := <-gcDone; err != nil {
		t.Fatalf("grandchild job failed: %v", err)
	}
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	rootIdx := adapter.callIndex("info root-log")
	childIdx := adapter.callIndex("info child-log")
	gcIdx := adapter.callIndex("log grandchild-blocking")
	if rootIdx == -1 || childIdx == -1 || gcIdx == -1 {
		t.Fatalf("missing calls, got %v", adapter.callNames())
	}
	if !(rootIdx < childIdx && childIdx < gcIdx) {
		t.Errorf("ancestor output must preempt descendant work, got order %v", adapter.callNames())
	}
}

func TestLogClassOutranksBlockingAtSameLevel(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	release, gateDone := startGate(t, root)

	blockingDone := make(chan error, 1)
	go func() {
		blockingDone <- root.RunBlocking(context.Background(), func(ctx context.Context, a term.Adapter) error {
			return a.Log("slow-work")
		})
	}()
	waitFor(t, "blocking job to queue", func() bool { return root.QueueSize() == 1 })

	// Submitted later, runs earlier: log class outranks blocking class.
	root.Log().Info("flush-me")

	close(release)
	if err := <-gateDone; err != nil {
		t.Fatalf("gate job failed: %v", err)
	}
	if err := <-blockingDone; err != nil {
		t.Fatalf("blocking job failed: %v", err)
	}
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}

	logIdx := adapter.callIndex("info flush-me")
	workIdx := adapter.callIndex("log slow-work")
	if logIdx == -1 || workIdx == -1 {
		t.Fatalf("missing calls, got %v", adapter.callNames())
	}
	if logIdx > workIdx {
		t.Errorf("log output starved behind blocking work: %v", adapter.callNames())
	}
}

func TestSpawnChildAllocatesDistinctLevels(t *testing.T) {
	t.Parallel()

	root := New(newFakeAdapter())
	defer root.Close()

	const spawns = 24
	levels := make(chan int, spawns)

	var wg sync.WaitGroup
	for i := 0; i < spawns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child, err := root.SpawnChild()
			if err != nil {
				t.Errorf("spawn child: %v", err)
				return
			}
			levels <- child.Level()
		}()
	}
	wg.Wait()
	close(levels)

	seen := make(map[int]bool, spawns)
	for level := range levels {
		if level >= root.Level() {
			t.Errorf("child level %d not below parent %d", level, root.Level())
		}
		if seen[level] {
			t.Errorf("level %d allocated twice", level)
		}
		seen[level] = true
	}
	if len(seen) != spawns {
		t.Errorf("expected %d distinct levels, got %d", spawns, len(seen))
	}
	if got := len(root.Children()); got != spawns {
		t.Errorf("child registry holds %d entries, want %d", got, spawns)
	}
}

func TestSpawnChildExplicitLevel(t *testing.T) {
	t.Parallel()

	root := New(newFakeAdapter())
	defer root.Close()

	child, err := root.SpawnChild(WithChildLevel(200))
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}
	if got := child.Level(); got != 200 {
		t.Errorf("child level = %d, want 200", got)
	}

	// The explicit child's own children count down from its level.
	grandchild, err := child.SpawnChild()
	if err != nil {
		t.Fatalf("spawn grandchild: %v", err)
	}
	if got := grandchild.Level(); got != 199 {
		t.Errorf("grandchild level = %d, want 199", got)
	}

	// A level at or above the parent's is refused.
	if _, err := root.SpawnChild(WithChildLevel(root.Level())); !errors.Is(err, ErrChildLevel) {
		t.Errorf("expected ErrChildLevel for equal level, got %v", err)
	}
	if _, err := child.SpawnChild(WithChildLevel(500)); !errors.Is(err, ErrChildLevel) {
		t.Errorf("expected ErrChildLevel above parent, got %v", err)
	}
}

func TestHierarchyNeverTouchesAdapterConcurrently(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	childA, err := root.SpawnChild()
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}
	childB, err := root.SpawnChild()
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}

	const jobsPerProducer = 20
	producers := []*Dispatcher{root, childA, childB}

	var wg sync.WaitGroup
	for pi, producer := range producers {
		wg.Add(1)
		go func(pi int, d *Dispatcher) {
			defer wg.Done()
			for i := 0; i < jobsPerProducer; i++ {
				var err error
				if i%2 == 0 {
					err = d.RunBlocking(context.Background(), func(ctx context.Context, a term.Adapter) error {
						return a.Logf("producer %d job %d", pi, i)
					})
				} else {
					err = d.RunLog(context.Background(), func(ctx context.Context, a term.Adapter) error {
						return a.Logf("producer %d job %d", pi, i)
					})
				}
				if err != nil {
					t.Errorf("producer %d job %d: %v", pi, i, err)
					return
				}
			}
		}(pi, producer)
	}
	wg.Wait()

	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	if adapter.overlap.Load() {
		t.Error("two jobs touched the adapter at once")
	}
	if got := len(adapter.callNames()); got != len(producers)*jobsPerProducer {
		t.Errorf("adapter saw %d calls, want %d", got, len(producers)*jobsPerProducer)
	}
}

func TestBlockingReturnsTypedResult(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	got, err := Blocking(context.Background(), root, func(ctx context.Context, a term.Adapter) (int, error) {
		if err := a.Log("counting"); err != nil {
			return 0, err
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("blocking: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}

	boom := errors.New("boom")
	_, err = Blocking(context.Background(), root, func(ctx context.Context, a term.Adapter) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected task error to propagate, got %v", err)
	}
}

func TestRootCloseDiscardsPendingAndClosesAdapter(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)

	release, gateDone := startGate(t, root)

	pendingDone := make(chan error, 1)
	go func() {
		pendingDone <- root.RunBlocking(context.Background(), func(ctx context.Context, a term.Adapter) error {
			return a.Log("never runs")
		})
	}()
	waitFor(t, "pending job to queue", func() bool { return root.QueueSize() == 1 })

	closeDone := make(chan error, 1)
	go func() {
		closeDone <- root.Close()
	}()

	// The pending caller is released with a cancellation error even
	// while the in-flight job is still running.
	select {
	case err := <-pendingDone:
		if !errors.Is(err, queue.ErrDiscarded) {
			t.Errorf("expected ErrDiscarded for pending job, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pending caller still waiting after Close")
	}

	close(release)
	if err := <-gateDone; err != nil {
		t.Errorf("in-flight job should finish cleanly, got %v", err)
	}
	if err := <-closeDone; err != nil {
		t.Errorf("close: %v", err)
	}

	if got := adapter.closes.Load(); got != 1 {
		t.Errorf("adapter closed %d times, want 1", got)
	}
	if adapter.callIndex("log never runs") != -1 {
		t.Error("discarded job ran anyway")
	}

	// Closed root refuses new work and spawns.
	if err := root.RunLog(context.Background(), func(ctx context.Context, a term.Adapter) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if _, err := root.SpawnChild(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed spawning after close, got %v", err)
	}

	// Idempotent: the adapter is not closed twice.
	if err := root.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if got := adapter.closes.Load(); got != 1 {
		t.Errorf("adapter closed %d times after double close, want 1", got)
	}
}

func TestChildCloseLeavesSharedResourcesUp(t *testing.T) {
	t.Parallel()

	adapter := newFakeAdapter()
	root := New(adapter)
	defer root.Close()

	child, err := root.SpawnChild()
	if err != nil {
		t.Fatalf("spawn child: %v", err)
	}
	if got := len(root.Children()); got != 1 {
		t.Fatalf("expected 1 registered child, got %d", got)
	}

	if err := child.Close(); err != nil {
		t.Fatalf("child close: %v", err)
	}

	if got := len(root.Children()); got != 0 {
		t.Errorf("closed child still registered, %d children", got)
	}
	if err := child.RunLog(context.Background(), func(ctx context.Context, a term.Adapter) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed submitting through closed child, got %v", err)
	}
	if got := adapter.closes.Load(); got != 0 {
		t.Errorf("child close must not close the shared adapter, closes = %d", got)
	}

	// The rest of the tree keeps working.
	if err := root.RunLog(context.Background(), func(ctx context.Context, a term.Adapter) error {
		return a.Log("still alive")
	}); err != nil {
		t.Errorf("root work after child close: %v", err)
	}
	if err := root.WaitIdle(context.Background()); err != nil {
		t.Fatalf("wait idle: %v", err)
	}
	if adapter.callIndex("log still alive") == -1 {
		t.Error("root output missing after child close")
	}
}

func TestDispatcherAccessors(t *testing.T) {
	t.Parallel()

	root := New(newFakeAdapter(), WithLevel(1500))
	defer root.Close()

	if root.ID() == "" {
		t.Error("dispatcher should have an id")
	}
	if got := root.Level(); got != 1500 {
		t.Errorf("level = %d, want 1500", got)
	}
	if got := root.QueueSize(); got != 0 {
		t.Errorf("fresh queue size = %d, want 0", got)
	}
	if got := root.QueuePending(); got != 0 {
		t.Errorf("fresh queue pending = %d, want 0", got)
	}
}
