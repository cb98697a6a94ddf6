package timer

import (
	"time"

	"github.com/tomatotools/pomo/config"
)

// State is the Pomodoro phase state machine. It is a plain value with no
// I/O: the Loop decides when transitions fire and which side effects
// accompany them.
type State struct {
	Phase        config.SessType
	Remaining    int // seconds
	SessionCount int
	Running      bool
	Paused       bool

	durations map[config.SessType]int
	interval  int
}

// NewState creates a state machine positioned at the start of a work
// session, not running. sessionCount seeds the machine with the day's
// completed work sessions.
func NewState(cfg *config.TimerConfig, sessionCount int) *State {
	durations := make(map[config.SessType]int)

	for _, name := range []config.SessType{
		config.Work,
		config.ShortBreak,
		config.LongBreak,
	} {
		durations[name] = int(cfg.Duration(name) / time.Second)
	}

	return &State{
		Phase:        config.Work,
		Remaining:    durations[config.Work],
		SessionCount: sessionCount,
		durations:    durations,
		interval:     cfg.LongBreakInterval,
	}
}

// Start begins or resumes the countdown. Calling it while already running
// is a no-op state-wise.
func (s *State) Start() {
	s.Running = true
	s.Paused = false
}

// Pause halts the countdown.
func (s *State) Pause() {
	s.Running = false
	s.Paused = true
}

// Reset stops the countdown and restores the full duration of the current
// phase.
func (s *State) Reset() {
	s.Running = false
	s.Paused = false
	s.Remaining = s.durations[s.Phase]
}

// Tick decrements the remaining time by one second while running. It never
// transitions phases: the caller detects completion through ShouldComplete
// so that completion side effects fire at a single, well-defined point.
func (s *State) Tick() {
	if s.Running && s.Remaining > 0 {
		s.Remaining--
	}
}

// ShouldComplete reports whether the running countdown has reached zero.
// It is a predicate, not a transition.
func (s *State) ShouldComplete() bool {
	return s.Running && s.Remaining <= 0
}

// Progress returns how far the current phase has advanced, in [0, 1].
func (s *State) Progress() float64 {
	total := s.durations[s.Phase]
	if total == 0 {
		return 0
	}

	p := 1 - float64(s.Remaining)/float64(total)

	if p < 0 {
		return 0
	}

	if p > 1 {
		return 1
	}

	return p
}

// Skip transitions to the next phase immediately, regardless of the time
// remaining. It performs exactly the same transition as natural
// completion.
func (s *State) Skip() {
	s.completePhase()
}

// completePhase moves to the next phase. Leaving a work session increments
// the session count, and every interval-th completed work session leads
// into a long break. The next phase always requires an explicit Start.
func (s *State) completePhase() {
	next := successor(s.Phase)

	if s.Phase == config.Work {
		s.SessionCount++

		if s.SessionCount%s.interval == 0 {
			next = config.LongBreak
		}
	}

	s.Phase = next
	s.Remaining = s.durations[next]
	s.Running = false
	s.Paused = false
}

func successor(name config.SessType) config.SessType {
	if name == config.Work {
		return config.ShortBreak
	}

	return config.Work
}
