package main

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tomatotools/pomo"
	"github.com/tomatotools/pomo/config"
)

// initLogger routes structured logs to a rotated file in the data
// directory so they never mix with the countdown output.
func initLogger() {
	w := &lumberjack.Logger{
		Filename:   config.LogFilePath(),
		MaxSize:    5, // megabytes
		MaxBackups: 2,
		Compress:   true,
	}

	slog.SetDefault(
		slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})),
	)
}

func run(args []string) error {
	return pomo.GetApp().Run(args)
}

func main() {
	config.InitializePaths()

	initLogger()

	err := run(os.Args)
	if err != nil {
		slog.Error("pomo exited with an error", slog.Any("error", err))
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
