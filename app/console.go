package app

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"github.com/tomatotools/pomo/config"
	"github.com/tomatotools/pomo/internal/timeutil"
	"github.com/tomatotools/pomo/internal/ui"
	"github.com/tomatotools/pomo/timer"
)

// console is the minimal terminal front for the timer loop. It renders the
// countdown, relays typed control actions, and reacts to loop events.
type console struct {
	cfg *config.TimerConfig
}

func newConsole(cfg *config.TimerConfig) *console {
	return &console{cfg: cfg}
}

// HandleEvent implements timer.EventSink.
func (c *console) HandleEvent(e timer.Event) {
	switch e.Kind {
	case timer.EventStarted:
		c.printSession(e.Phase)
	case timer.EventCompleted:
		fmt.Fprintf(os.Stdout, "\r\033[K")
		pterm.Printfln("%s completed!", e.Phase)
	case timer.EventStopped:
	}
}

// Run starts the loop and blocks until the user quits or the process is
// signalled.
func (c *console) Run(loop *timer.Loop) error {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	inputC := make(chan string)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			inputC <- strings.TrimSpace(scanner.Text())
		}

		close(inputC)
	}()

	pterm.Println("Commands: toggle · reset · skip · show · quit")

	loop.Start()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigC:
			return nil

		case line, ok := <-inputC:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			if line == "q" || line == "quit" {
				return nil
			}

			loop.Handle(line)

		case <-ticker.C:
			c.countdown(loop)
		}
	}
}

// countdown redraws the remaining time on the current line.
func (c *console) countdown(loop *timer.Loop) {
	snap := loop.Snapshot()

	r := timeutil.SecsToRemainder(snap.TimeRemaining)

	fmt.Fprintf(
		os.Stdout,
		"\r\033[K🕒%s:%s",
		pterm.Yellow(fmt.Sprintf("%02d", r.M)),
		pterm.Yellow(fmt.Sprintf("%02d", r.S)),
	)
}

// printSession writes the details of the session that just started.
func (c *console) printSession(name config.SessType) {
	var text string

	switch name {
	case config.Work:
		text = ui.Green("["+string(config.Work)+"]") +
			": " + c.cfg.Messages[config.Work]
	case config.ShortBreak:
		text = ui.Blue("["+string(config.ShortBreak)+"]") +
			": " + c.cfg.Messages[config.ShortBreak]
	case config.LongBreak:
		text = ui.Magenta("["+string(config.LongBreak)+"]") +
			": " + c.cfg.Messages[config.LongBreak]
	}

	fmt.Fprintf(os.Stdout, "\r\033[K%s\n", text)
}
