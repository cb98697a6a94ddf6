// Package notify is the default notification and completion-sound
// collaborator for the timer loop.
package notify

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gen2brain/beeep"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tomatotools/pomo/config"
)

var errInvalidSoundFormat = errors.New(
	"sound file must be in mp3, ogg, flac, or wav format",
)

// Notifier sends desktop notifications via the system notification service
// and plays completion sounds.
type Notifier struct {
	messages   map[config.SessType]string
	workSound  string
	breakSound string
	enabled    bool
}

// New creates a Notifier from the timer configuration.
func New(cfg *config.TimerConfig) *Notifier {
	return &Notifier{
		messages:   cfg.Messages,
		workSound:  cfg.WorkSound,
		breakSound: cfg.BreakSound,
		enabled:    cfg.Notify,
	}
}

// PhaseCompleted sends a desktop notification for the completed phase.
func (n *Notifier) PhaseCompleted(phase config.SessType, sessionCount int) {
	if !n.enabled {
		return
	}

	title := string(phase) + " is finished"

	msg := n.messages[phase]
	if phase == config.Work {
		msg = fmt.Sprintf("%d work sessions completed today", sessionCount)
	}

	// pathToIcon will be an empty string if the file is not found
	pathToIcon, _ := xdg.SearchDataFile(
		filepath.Join(config.Dir(), "static", "icon.png"),
	)

	err := beeep.Notify(title, msg, pathToIcon)
	if err != nil {
		slog.Error("unable to display notification", slog.Any("error", err))
	}
}

// PlayCompletion plays the completion sound for the phase that just ended.
// The end of a work session announces the break, and vice versa.
func (n *Notifier) PlayCompletion(phase config.SessType) {
	if !n.enabled {
		return
	}

	sound := n.breakSound
	if phase != config.Work {
		sound = n.workSound
	}

	if sound == "" || sound == "off" {
		return
	}

	err := playSound(sound)
	if err != nil {
		slog.Error("unable to play sound", slog.Any("error", err))
	}
}

// resolveSound returns an open handle to the sound file, looking in the
// application data directory when the value is not a path to an existing
// file.
func resolveSound(sound string) (fs.File, error) {
	if _, err := os.Stat(sound); err == nil {
		return os.Open(sound)
	}

	path, err := xdg.SearchDataFile(
		filepath.Join(config.Dir(), "static", sound),
	)
	if err != nil {
		return nil, err
	}

	return os.Open(path)
}

func playSound(sound string) error {
	f, err := resolveSound(sound)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)

	switch filepath.Ext(sound) {
	case ".ogg":
		stream, format, err = vorbis.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	case ".wav":
		stream, format, err = wav.Decode(f)
	default:
		return errInvalidSoundFormat
	}

	if err != nil {
		return err
	}

	defer stream.Close()

	err = speaker.Init(
		format.SampleRate,
		format.SampleRate.N(100*time.Millisecond),
	)
	if err != nil {
		return err
	}

	defer speaker.Close()

	done := make(chan struct{})

	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		close(done)
	})))

	<-done

	return nil
}
