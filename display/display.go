// Package display forwards timer state to an optional external
// status-display helper. Updates are diffed against the last rendered
// snapshot, debounced, and invocations back off exponentially after
// failures so a broken helper can never slow the timer down.
package display

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/tomatotools/pomo/internal/models"
	"github.com/tomatotools/pomo/internal/timeutil"
	"github.com/tomatotools/pomo/statefile"
)

// Allow-listed verbs understood by the status-display helper.
const (
	verbSetDisplay = "set-display"
	verbQuery      = "query-availability"
)

const (
	helperName = "pomobar"

	// maxBackoff caps the retry delay after consecutive failures.
	maxBackoff = 60 * time.Second

	pausedColor = "#6C6C6C"
)

// Options configures a Sync.
type Options struct {
	// Cmd is an explicit path to the helper executable. When empty, a short
	// list of well-known install locations is searched instead.
	Cmd      string
	Debounce time.Duration
	Colors   map[string]string
	Icons    map[string]string
}

type request struct {
	snap  models.Snapshot
	force bool
}

// Sync forwards accepted snapshots to the state file and the external
// display helper. All fields below reqs are owned by the worker goroutine.
type Sync struct {
	gateway *statefile.Gateway
	opts    Options
	cmdPath string

	reqs chan request
	quit chan struct{}
	done chan struct{}

	now    func() time.Time
	runCmd func(path string, args ...string) error

	cache        *models.Snapshot
	pending      *models.Snapshot
	available    bool
	failures     int
	lastFailure  time.Time
	lastDispatch time.Time
}

// New creates a display sync, probes the helper once, and starts the
// background worker. Absence of the helper is not an error; the sync then
// only persists snapshots.
func New(gateway *statefile.Gateway, opts Options) *Sync {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	s := &Sync{
		gateway: gateway,
		opts:    opts,
		reqs:    make(chan request, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		now:     time.Now,
		runCmd:  runCommand,
	}

	s.probe()

	go s.run()

	return s
}

// Update submits a snapshot. Snapshots equal to the last rendered one are
// dropped; the rest are debounced so that only the most recent snapshot
// within the window is delivered.
func (s *Sync) Update(snap models.Snapshot) {
	select {
	case s.reqs <- request{snap: snap}:
	case <-s.quit:
	}
}

// Force submits a snapshot that bypasses the cache-equality check and the
// debounce window. Availability and backoff gating still apply.
func (s *Sync) Force(snap models.Snapshot) {
	select {
	case s.reqs <- request{snap: snap, force: true}:
	case <-s.quit:
	}
}

// Close stops the worker. In-flight updates are completed, queued ones are
// dropped.
func (s *Sync) Close() {
	close(s.quit)
	<-s.done
}

// probe issues a single availability check against the helper. The result
// is never revised afterwards except implicitly through the failure
// counter.
func (s *Sync) probe() {
	path, err := resolveHelper(s.opts.Cmd)
	if err != nil {
		slog.Info("status-display helper not found", slog.Any("error", err))
		return
	}

	s.cmdPath = path

	if err := s.runCmd(path, verbQuery); err != nil {
		slog.Info(
			"status-display helper unavailable",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return
	}

	s.available = true
}

func (s *Sync) run() {
	defer close(s.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case req := <-s.reqs:
			if req.force {
				s.performUpdate(req.snap)
				continue
			}

			if s.cache != nil && req.snap.SameState(*s.cache) {
				continue
			}

			snap := req.snap
			s.pending = &snap

			if fire == nil {
				wait := s.opts.Debounce - s.now().Sub(s.lastDispatch)
				if wait < 0 {
					wait = 0
				}

				timer = time.NewTimer(wait)
				fire = timer.C
			}

		case <-fire:
			fire = nil

			if s.pending != nil {
				s.performUpdate(*s.pending)
				s.pending = nil
			}

		case <-s.quit:
			if timer != nil {
				timer.Stop()
			}

			return
		}
	}
}

// performUpdate persists the snapshot and, if the helper is available and
// not in a backoff window, invokes it with the formatted display state.
func (s *Sync) performUpdate(snap models.Snapshot) {
	s.lastDispatch = s.now()

	s.gateway.Write(snap)

	if !s.available || s.inBackoff() {
		return
	}

	err := s.runCmd(s.cmdPath, s.formatArgs(snap)...)
	if err != nil {
		s.failures++
		s.lastFailure = s.now()

		slog.Warn(
			"status-display update failed",
			slog.Int("failures", s.failures),
			slog.Any("error", err),
		)

		return
	}

	s.failures = 0
	s.lastFailure = time.Time{}
	s.cache = &snap
}

// inBackoff reports whether the helper invocation should be skipped due to
// recent failures. The window is min(2^failures, 60) seconds from the last
// failure.
func (s *Sync) inBackoff() bool {
	if s.failures == 0 {
		return false
	}

	delay := backoffDelay(s.failures)

	return s.now().Sub(s.lastFailure) < delay
}

func backoffDelay(failures int) time.Duration {
	if failures > 6 {
		return maxBackoff
	}

	delay := time.Duration(1<<failures) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}

	return delay
}

// formatArgs builds the argv for a set-display invocation: the countdown
// label, the phase icon, and a colour reflecting both phase and running
// state.
func (s *Sync) formatArgs(snap models.Snapshot) []string {
	r := timeutil.SecsToRemainder(snap.TimeRemaining)

	color := s.opts.Colors[snap.Phase]
	if !snap.IsRunning {
		color = pausedColor
	}

	return []string{
		verbSetDisplay,
		fmt.Sprintf("label=%02d:%02d", r.M, r.S),
		fmt.Sprintf("icon=%s", s.opts.Icons[snap.Phase]),
		fmt.Sprintf("color=%s", color),
	}
}

// resolveHelper searches an ordered list of well-known locations for the
// helper executable.
func resolveHelper(explicit string) (string, error) {
	if explicit != "" {
		return exec.LookPath(explicit)
	}

	if path, err := exec.LookPath(helperName); err == nil {
		return path, nil
	}

	candidates := []string{
		filepath.Join("/usr/local/bin", helperName),
		filepath.Join("/opt/homebrew/bin", helperName),
		filepath.Join(xdg.Home, ".local", "bin", helperName),
	}

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found in any known location", helperName)
}

func runCommand(path string, args ...string) error {
	return exec.Command(path, args...).Run()
}
