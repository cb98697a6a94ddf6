// Package timer operates the pomo countdown timer: a phase state machine
// driven by a one-second tick source, with all mutation serialised onto a
// single scheduling goroutine.
package timer

import (
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/tomatotools/pomo/config"
	"github.com/tomatotools/pomo/internal/models"
	"github.com/tomatotools/pomo/statefile"
	"github.com/tomatotools/pomo/store"
)

// Notifier delivers a desktop notification after a phase completes.
type Notifier interface {
	PhaseCompleted(phase config.SessType, sessionCount int)
}

// Sounder plays the completion sound for the phase being completed.
type Sounder interface {
	PlayCompletion(phase config.SessType)
}

// Inhibitor holds a "don't suspend" token while the timer is active.
type Inhibitor interface {
	Acquire()
	Release()
}

// Publisher forwards snapshots to the external display integration.
type Publisher interface {
	Update(models.Snapshot)
	Force(models.Snapshot)
}

// Deps are the collaborators injected into a Loop. Only DB and Gateway are
// required; the rest degrade to no-ops when nil.
type Deps struct {
	DB        *store.Client
	Gateway   *statefile.Gateway
	Sync      Publisher
	Notifier  Notifier
	Sounder   Sounder
	Inhibitor Inhibitor
	Events    EventSink
}

// Loop drives the phase state machine at 1 Hz and arbitrates which side
// effects fire on each transition. All state below cmds is owned by the
// run goroutine.
type Loop struct {
	opts *config.TimerConfig
	deps Deps

	cmds chan func()
	quit chan struct{}
	done chan struct{}

	now func() time.Time
	pid int

	state       *State
	ticker      *time.Ticker
	tick        <-chan time.Time
	lastPublish time.Time
}

// New creates a timer loop seeded with today's persisted session count and
// starts its scheduling goroutine in the idle state.
func New(cfg *config.TimerConfig, deps Deps) (*Loop, error) {
	count, err := deps.DB.Count(time.Now())
	if err != nil {
		return nil, err
	}

	l := &Loop{
		opts:  cfg,
		deps:  deps,
		cmds:  make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		now:   time.Now,
		pid:   os.Getpid(),
		state: NewState(cfg, count),
	}

	go l.run()

	return l, nil
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		select {
		case fn := <-l.cmds:
			fn()
		case <-l.tick:
			l.onTick()
		case <-l.quit:
			l.stopTicker()
			l.release()

			return
		}
	}
}

// do executes fn on the scheduling goroutine and waits for it, so that
// user actions are serialised with tick processing and forced publishes
// retain call order.
func (l *Loop) do(fn func()) {
	ran := make(chan struct{})

	select {
	case l.cmds <- func() {
		fn()
		close(ran)
	}:
		<-ran
	case <-l.quit:
	}
}

// Start begins or resumes the countdown.
func (l *Loop) Start() {
	l.do(func() {
		l.stopTicker()
		l.state.Start()

		l.ticker = time.NewTicker(time.Second)
		l.tick = l.ticker.C

		l.acquire()
		l.publish(true)
		l.emit(EventStarted)
	})
}

// Pause halts the countdown.
func (l *Loop) Pause() {
	l.do(func() {
		l.stopTicker()
		l.release()
		l.state.Pause()
		l.publish(true)
		l.emit(EventStopped)
	})
}

// Toggle starts the countdown if idle or paused, and pauses it otherwise.
func (l *Loop) Toggle() {
	if l.IsRunning() {
		l.Pause()
		return
	}

	l.Start()
}

// Reset stops the countdown and restores the full phase duration.
func (l *Loop) Reset() {
	l.do(func() {
		l.stopTicker()
		l.release()
		l.state.Reset()
		l.publish(true)
		l.emit(EventStopped)
	})
}

// Skip silently transitions to the next phase. No sound or notification
// fires: the transition was requested by the user, not discovered by the
// clock.
func (l *Loop) Skip() {
	l.do(func() {
		l.stopTicker()
		l.release()

		leaving := l.state.Phase

		l.state.Skip()

		if leaving == config.Work {
			l.persistCount()
		}

		l.publish(true)
	})
}

// Handle dispatches an inbound control action. Unrecognised actions are
// logged and ignored.
func (l *Loop) Handle(action string) {
	switch action {
	case "toggle":
		l.Toggle()
	case "reset":
		l.Reset()
	case "skip":
		l.Skip()
	case "show":
		// display-only action, nothing to do in the core
	default:
		slog.Warn(
			"ignoring unrecognised control action",
			slog.String("action", action),
		)
	}
}

// Snapshot returns the current externally visible state.
func (l *Loop) Snapshot() models.Snapshot {
	var snap models.Snapshot

	l.do(func() {
		snap = l.snapshot()
	})

	return snap
}

// IsRunning reports whether the countdown is active.
func (l *Loop) IsRunning() bool {
	var running bool

	l.do(func() {
		running = l.state.Running
	})

	return running
}

// Close stops the loop and removes the published state file. In-flight
// background publishes are allowed to complete but are not awaited.
func (l *Loop) Close() {
	close(l.quit)
	<-l.done

	l.deps.Gateway.Remove()
}

func (l *Loop) onTick() {
	l.state.Tick()
	l.publish(false)

	if !l.state.ShouldComplete() {
		return
	}

	l.stopTicker()
	l.release()

	leaving := l.state.Phase

	if l.deps.Sounder != nil {
		l.deps.Sounder.PlayCompletion(leaving)
	}

	l.state.completePhase()

	if leaving == config.Work {
		l.persistCount()
	}

	l.publish(true)

	if l.deps.Notifier != nil {
		l.deps.Notifier.PhaseCompleted(leaving, l.state.SessionCount)
	}

	l.emitEvent(Event{
		Kind:         EventCompleted,
		Phase:        leaving,
		SessionCount: l.state.SessionCount,
	})

	l.runSessionCmd()
}

// publish builds a snapshot and hands it to the display sync, or straight
// to the state file when display sync is disabled. Routine tick publishes
// are throttled; transition publishes are forced so external observers
// never see stale state across a user-visible event.
func (l *Loop) publish(force bool) {
	if !force && l.now().Sub(l.lastPublish) < l.opts.PublishInterval {
		return
	}

	l.lastPublish = l.now()

	snap := l.snapshot()

	if l.deps.Sync != nil {
		if force {
			l.deps.Sync.Force(snap)
		} else {
			l.deps.Sync.Update(snap)
		}

		return
	}

	l.deps.Gateway.Write(snap)
}

func (l *Loop) snapshot() models.Snapshot {
	return models.Snapshot{
		AppPID:        l.pid,
		Phase:         string(l.state.Phase),
		TimeRemaining: l.state.Remaining,
		SessionCount:  l.state.SessionCount,
		IsRunning:     l.state.Running,
	}
}

func (l *Loop) persistCount() {
	err := l.deps.DB.SetCount(l.now(), l.state.SessionCount)
	if err != nil {
		slog.Error("unable to persist session count", slog.Any("error", err))
	}
}

func (l *Loop) emit(kind EventKind) {
	l.emitEvent(Event{
		Kind:         kind,
		Phase:        l.state.Phase,
		SessionCount: l.state.SessionCount,
	})
}

func (l *Loop) emitEvent(e Event) {
	if l.deps.Events == nil {
		return
	}

	l.deps.Events.HandleEvent(e)
}

func (l *Loop) acquire() {
	if l.deps.Inhibitor != nil {
		l.deps.Inhibitor.Acquire()
	}
}

func (l *Loop) release() {
	if l.deps.Inhibitor != nil {
		l.deps.Inhibitor.Release()
	}
}

func (l *Loop) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
		l.tick = nil
	}
}

// runSessionCmd executes the user-configured command after a completed
// session. Failures are logged and never affect the timer.
func (l *Loop) runSessionCmd() {
	sessionCmd := l.opts.SessionCmd
	if sessionCmd == "" {
		return
	}

	cmdSlice, err := shellquote.Split(sessionCmd)
	if err != nil {
		slog.Error("unable to parse session cmd", slog.Any("error", err))
		return
	}

	if len(cmdSlice) == 0 {
		return
	}

	go func() {
		err := exec.Command(cmdSlice[0], cmdSlice[1:]...).Run()
		if err != nil {
			slog.Error("session cmd failed", slog.Any("error", err))
		}
	}()
}
