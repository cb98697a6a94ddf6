package display

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomatotools/pomo/internal/models"
	"github.com/tomatotools/pomo/statefile"
)

type cmdRecorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *cmdRecorder) run(_ string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, args)

	return r.err
}

func (r *cmdRecorder) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

func (r *cmdRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.calls)
}

func (r *cmdRecorder) lastCall() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}

	return r.calls[len(r.calls)-1]
}

type testClock struct {
	offset atomic.Int64
}

func (c *testClock) now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *testClock) advance(d time.Duration) {
	c.offset.Add(int64(d))
}

func newTestSync(
	t *testing.T,
	rec *cmdRecorder,
	clock *testClock,
	available bool,
) (*Sync, *statefile.Gateway) {
	t.Helper()

	gateway := statefile.New(filepath.Join(t.TempDir(), "state.json"))
	t.Cleanup(gateway.Close)

	s := &Sync{
		gateway: gateway,
		opts: Options{
			Debounce: 20 * time.Millisecond,
			Colors:   map[string]string{"Work": "#B0DB43"},
			Icons:    map[string]string{"Work": "🍅"},
		},
		cmdPath:   "pomobar",
		reqs:      make(chan request, 16),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		now:       clock.now,
		runCmd:    rec.run,
		available: available,
	}

	go s.run()

	t.Cleanup(s.Close)

	return s, gateway
}

func workSnapshot(remaining int) models.Snapshot {
	return models.Snapshot{
		AppPID:        os.Getpid(),
		Phase:         "Work",
		TimeRemaining: remaining,
		SessionCount:  1,
		IsRunning:     true,
	}
}

func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)

	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal(msg)
}

func TestEqualSnapshotsTriggerOneInvocation(t *testing.T) {
	rec := &cmdRecorder{}
	s, _ := newTestSync(t, rec, &testClock{}, true)

	s.Update(workSnapshot(100))
	s.Update(workSnapshot(100))

	waitFor(t, "expected one invocation", func() bool {
		return rec.count() == 1
	})

	// a repeat after rendering must hit the cache
	s.Update(workSnapshot(100))

	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected 1 invocation, got %d", got)
	}
}

func TestLatestSnapshotWinsWithinWindow(t *testing.T) {
	rec := &cmdRecorder{}
	s, _ := newTestSync(t, rec, &testClock{}, true)

	s.Update(workSnapshot(100))
	s.Update(workSnapshot(100))
	s.Update(workSnapshot(65))

	waitFor(t, "expected one invocation", func() bool {
		return rec.count() == 1
	})

	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected exactly one invocation, got %d", got)
	}

	args := rec.lastCall()

	want := []string{"set-display", "label=01:05", "icon=🍅", "color=#B0DB43"}

	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("expected args %v, got %v", want, args)
	}
}

func TestPausedSnapshotUsesNeutralColor(t *testing.T) {
	rec := &cmdRecorder{}
	s, _ := newTestSync(t, rec, &testClock{}, true)

	snap := workSnapshot(100)
	snap.IsRunning = false

	s.Force(snap)

	waitFor(t, "expected one invocation", func() bool {
		return rec.count() == 1
	})

	args := rec.lastCall()

	if args[3] != "color="+pausedColor {
		t.Fatalf("expected the paused colour, got %s", args[3])
	}
}

func TestFailureBackoffSkipsInvocations(t *testing.T) {
	rec := &cmdRecorder{}
	clock := &testClock{}
	s, gateway := newTestSync(t, rec, clock, true)

	rec.setErr(errors.New("helper exploded"))

	s.Force(workSnapshot(100))

	waitFor(t, "expected the failed invocation", func() bool {
		return rec.count() == 1
	})

	// within the 2s backoff window the helper must not be invoked, but
	// persistence must still happen
	s.Force(workSnapshot(90))

	waitFor(t, "expected persistence during backoff", func() bool {
		snap := gateway.Read()
		return snap != nil && snap.TimeRemaining == 90
	})

	if got := rec.count(); got != 1 {
		t.Fatalf("expected no invocation during backoff, got %d", got)
	}

	rec.setErr(nil)
	clock.advance(3 * time.Second)

	s.Force(workSnapshot(80))

	waitFor(t, "expected an invocation after the backoff window", func() bool {
		return rec.count() == 2
	})

	// success resets the failure counter, so the next update goes through
	s.Force(workSnapshot(70))

	waitFor(t, "expected an immediate invocation after reset", func() bool {
		return rec.count() == 3
	})
}

func TestForceBypassesCacheOnly(t *testing.T) {
	rec := &cmdRecorder{}
	s, _ := newTestSync(t, rec, &testClock{}, true)

	s.Force(workSnapshot(100))
	s.Force(workSnapshot(100))

	waitFor(t, "expected two invocations", func() bool {
		return rec.count() == 2
	})
}

func TestUnavailableHelperStillPersists(t *testing.T) {
	rec := &cmdRecorder{}
	s, gateway := newTestSync(t, rec, &testClock{}, false)

	s.Force(workSnapshot(100))

	waitFor(t, "expected persistence without a helper", func() bool {
		return gateway.Read() != nil
	})

	if got := rec.count(); got != 0 {
		t.Fatalf("expected no invocations without a helper, got %d", got)
	}
}

func TestNewWithMissingHelper(t *testing.T) {
	gateway := statefile.New(filepath.Join(t.TempDir(), "state.json"))
	t.Cleanup(gateway.Close)

	s := New(gateway, Options{
		Cmd:      "/nonexistent/pomobar-test-helper",
		Debounce: 20 * time.Millisecond,
	})
	t.Cleanup(s.Close)

	if s.available {
		t.Fatal("expected a missing helper to be unavailable")
	}

	s.Update(workSnapshot(100))

	waitFor(t, "expected persistence despite a missing helper", func() bool {
		return gateway.Read() != nil
	})
}

func TestBackoffDelay(t *testing.T) {
	testCases := []struct {
		failures int
		want     time.Duration
	}{
		{failures: 1, want: 2 * time.Second},
		{failures: 3, want: 8 * time.Second},
		{failures: 5, want: 32 * time.Second},
		{failures: 6, want: 60 * time.Second},
		{failures: 20, want: 60 * time.Second},
	}

	for _, tc := range testCases {
		if got := backoffDelay(tc.failures); got != tc.want {
			t.Errorf(
				"backoffDelay(%d) = %s, want %s",
				tc.failures,
				got,
				tc.want,
			)
		}
	}
}
