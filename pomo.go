// Package pomo defines the command-line interface for the pomo timer.
package pomo

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"

	"github.com/tomatotools/pomo/app"
	"github.com/tomatotools/pomo/config"
)

const (
	envNoColor     = "NO_COLOR"
	envPomoNoColor = "POMO_NO_COLOR"
)

var (
	workFlag = &cli.StringFlag{
		Name:    "work",
		Aliases: []string{"w"},
		Usage:   "Work duration in minutes (default: 25)",
	}

	shortBreakFlag = &cli.StringFlag{
		Name:    "short-break",
		Aliases: []string{"s"},
		Usage:   "Short break duration in minutes (default: 5)",
	}

	longBreakFlag = &cli.StringFlag{
		Name:    "long-break",
		Aliases: []string{"l"},
		Usage:   "Long break duration in minutes (default: 15)",
	}

	longBreakIntervalFlag = &cli.UintFlag{
		Name:    "long-break-interval",
		Aliases: []string{"int"},
		Usage:   "The number of work sessions before a long break (default: 4)",
	}

	disableNotificationFlag = &cli.BoolFlag{
		Name:    "disable-notification",
		Aliases: []string{"d"},
		Usage:   "Disable the system notification that appears after a session is completed",
	}

	sessionCmdFlag = &cli.StringFlag{
		Name:    "session-cmd",
		Aliases: []string{"cmd"},
		Usage:   "Execute an arbitrary command after each session",
	}

	noDisplaySyncFlag = &cli.BoolFlag{
		Name:  "no-display-sync",
		Usage: "Disable forwarding the timer state to the status-display helper",
	}

	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}

	historyDaysFlag = &cli.IntFlag{
		Name:  "days",
		Usage: "Number of days to list (default: 7)",
	}
)

// disableStyling disables all styling provided by pterm.
func disableStyling() {
	pterm.DisableColor()
	pterm.DisableStyling()
}

// GetApp retrieves the pomo app instance.
func GetApp() *cli.App {
	return &cli.App{
		Name:                 "pomo",
		Usage:                "pomo is a Pomodoro timer for the command line with optional status-display integration",
		UsageText:            "[COMMAND] [OPTIONS]",
		Version:              config.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Print the status of a timer running in another process",
				Action: app.StatusAction,
			},
			{
				Name:   "history",
				Usage:  "List completed work sessions per day",
				Flags:  []cli.Flag{historyDaysFlag},
				Action: app.HistoryAction,
			},
		},
		Flags: []cli.Flag{
			workFlag,
			shortBreakFlag,
			longBreakFlag,
			longBreakIntervalFlag,
			disableNotificationFlag,
			sessionCmdFlag,
			noDisplaySyncFlag,
			noColorFlag,
		},
		Before: beforeAction,
		After: func(ctx *cli.Context) error {
			slog.InfoContext(ctx.Context, "exiting pomo")

			return nil
		},
		Action: app.DefaultAction,
	}
}

func beforeAction(ctx *cli.Context) error {
	pterm.Error.MessageStyle = pterm.NewStyle(pterm.FgRed)
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}

	if _, exists := os.LookupEnv(envNoColor); exists {
		disableStyling()
	}

	if _, exists := os.LookupEnv(envPomoNoColor); exists {
		disableStyling()
	}

	if ctx.Bool("no-color") {
		disableStyling()
	}

	return nil
}
