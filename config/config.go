// Package config is responsible for resolving file paths and loading the
// timer configuration from the config file and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

// SessType is the type of a timer session.
type SessType string

const (
	Work       SessType = "Work"
	ShortBreak SessType = "Short break"
	LongBreak  SessType = "Long break"
)

const Version = "v0.1.0"

var (
	configDir      = "pomo"
	configFileName = "config.yml"
	dbFileName     = "pomo.db"
	stateFileName  = "state.json"
	logFileName    = "pomo.log"

	configFilePath string
	dbFilePath     string
	stateFilePath  string
	logFilePath    string
)

// TimerConfig represents the timer configuration.
type TimerConfig struct {
	Durations         map[SessType]time.Duration
	Messages          map[SessType]string
	Colors            map[SessType]string
	Icons             map[SessType]string
	PathToConfig      string
	PathToDB          string
	SessionCmd        string
	WorkSound         string
	BreakSound        string
	DisplayCmd        string
	LongBreakInterval int
	PublishInterval   time.Duration
	DisplayDebounce   time.Duration
	Notify            bool
	DisplaySync       bool
	DarkTheme         bool
}

// Duration returns the configured duration for the specified session type.
func (c *TimerConfig) Duration(name SessType) time.Duration {
	return c.Durations[name]
}

func DBFilePath() string {
	return dbFilePath
}

func StateFilePath() string {
	return stateFilePath
}

func LogFilePath() string {
	return logFilePath
}

func ConfigFilePath() string {
	return configFilePath
}

func Dir() string {
	return configDir
}

// InitializePaths sets up the application paths. The POMO_ENV environment
// variable suffixes each file name so that tests and production never share
// state.
func InitializePaths() {
	pomoEnv := strings.TrimSpace(os.Getenv("POMO_ENV"))
	if pomoEnv != "" {
		configFileName = fmt.Sprintf("config_%s.yml", pomoEnv)
		dbFileName = fmt.Sprintf("pomo_%s.db", pomoEnv)
		stateFileName = fmt.Sprintf("state_%s.json", pomoEnv)
		logFileName = fmt.Sprintf("pomo_%s.log", pomoEnv)
	}

	var err error

	configFilePath, err = xdg.ConfigFile(filepath.Join(configDir, configFileName))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	dataDir, err := xdg.DataFile(configDir)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	dbFilePath = filepath.Join(dataDir, dbFileName)
	stateFilePath = filepath.Join(dataDir, stateFileName)
	logFilePath = filepath.Join(dataDir, "log", logFileName)
}

// Timer initialises the timer configuration from the config file, and
// applies any command-line overrides.
func Timer(ctx *cli.Context) (*TimerConfig, error) {
	cfg, err := fromViper(configFilePath)
	if err != nil {
		return nil, err
	}

	cfg.PathToConfig = configFilePath
	cfg.PathToDB = dbFilePath

	if err := overrideFromFlags(cfg, ctx); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

// overrideFromFlags applies command-line overrides to the config.
func overrideFromFlags(cfg *TimerConfig, ctx *cli.Context) error {
	flagToSession := map[string]SessType{
		"work":        Work,
		"short-break": ShortBreak,
		"long-break":  LongBreak,
	}

	for flag, name := range flagToSession {
		if v := ctx.String(flag); v != "" {
			dur, err := parseDuration(v)
			if err != nil {
				return err
			}

			cfg.Durations[name] = dur
		}
	}

	if v := ctx.Uint("long-break-interval"); v > 0 {
		cfg.LongBreakInterval = int(v)
	}

	if ctx.Bool("disable-notification") {
		cfg.Notify = false
	}

	if v := ctx.String("session-cmd"); v != "" {
		cfg.SessionCmd = v
	}

	if ctx.Bool("no-display-sync") {
		cfg.DisplaySync = false
	}

	return nil
}

func (c *TimerConfig) validate() error {
	for _, name := range []SessType{Work, ShortBreak, LongBreak} {
		if c.Durations[name] <= 0 {
			return fmt.Errorf("%w: %s", errInvalidDuration, name)
		}
	}

	if c.LongBreakInterval <= 0 {
		return errInvalidInterval
	}

	return nil
}

// parseDuration accepts either a Go duration string or a bare number of
// minutes.
func parseDuration(s string) (time.Duration, error) {
	dur, err := time.ParseDuration(s)
	if err == nil {
		return dur, nil
	}

	mins, err := time.ParseDuration(s + "m")
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errInvalidDuration, s)
	}

	return mins, nil
}
