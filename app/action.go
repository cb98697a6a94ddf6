// Package app implements the CLI actions.
package app

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/tomatotools/pomo/config"
	"github.com/tomatotools/pomo/display"
	"github.com/tomatotools/pomo/internal/notify"
	"github.com/tomatotools/pomo/internal/power"
	"github.com/tomatotools/pomo/internal/timeutil"
	"github.com/tomatotools/pomo/internal/ui"
	"github.com/tomatotools/pomo/statefile"
	"github.com/tomatotools/pomo/store"
	"github.com/tomatotools/pomo/timer"
)

// DefaultAction starts the timer and runs the interactive console until
// the user quits.
func DefaultAction(ctx *cli.Context) error {
	cfg, err := config.Timer(ctx)
	if err != nil {
		return err
	}

	ui.DarkTheme = cfg.DarkTheme

	db, err := store.NewClient(cfg.PathToDB)
	if err != nil {
		return err
	}

	defer func() {
		_ = db.Close()
	}()

	gateway := statefile.New(config.StateFilePath())
	defer gateway.Close()

	var sync timer.Publisher

	if cfg.DisplaySync {
		s := display.New(gateway, display.Options{
			Cmd:      cfg.DisplayCmd,
			Debounce: cfg.DisplayDebounce,
			Colors:   phaseKeyed(cfg.Colors),
			Icons:    phaseKeyed(cfg.Icons),
		})
		defer s.Close()

		sync = s
	}

	console := newConsole(cfg)

	loop, err := timer.New(cfg, timer.Deps{
		DB:        db,
		Gateway:   gateway,
		Sync:      sync,
		Notifier:  notify.New(cfg),
		Sounder:   notify.New(cfg),
		Inhibitor: power.New(),
		Events:    console,
	})
	if err != nil {
		return err
	}

	defer loop.Close()

	return console.Run(loop)
}

// StatusAction prints the state of a timer running in another process.
func StatusAction(ctx *cli.Context) error {
	gateway := statefile.New(config.StateFilePath())
	defer gateway.Close()

	snap := gateway.Read()
	// an absent, stale, or orphaned state file means no status to report
	if snap == nil {
		return nil
	}

	r := timeutil.SecsToRemainder(snap.TimeRemaining)

	label := fmt.Sprintf("[%s]", snap.Phase)
	if !snap.IsRunning {
		label += " (paused)"
	}

	pterm.Printfln(
		"%s: %02d:%02d · %d work sessions today",
		label,
		r.M,
		r.S,
		snap.SessionCount,
	)

	return nil
}

// HistoryAction lists the persisted daily session counts.
func HistoryAction(ctx *cli.Context) error {
	db, err := store.NewClient(config.DBFilePath())
	if err != nil {
		return err
	}

	defer func() {
		_ = db.Close()
	}()

	days := ctx.Int("days")
	if days <= 0 {
		days = 7
	}

	counts, err := db.History(days)
	if err != nil {
		return err
	}

	data := pterm.TableData{
		{"DATE", "WORK SESSIONS"},
	}

	for _, dc := range counts {
		data = append(data, []string{
			dc.Date.Format("Jan 02, 2006"),
			fmt.Sprintf("%d", dc.Count),
		})
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// phaseKeyed re-keys a session-type map by the phase label strings used in
// snapshots.
func phaseKeyed(m map[config.SessType]string) map[string]string {
	out := make(map[string]string, len(m))

	for k, v := range m {
		out[string(k)] = v
	}

	return out
}
