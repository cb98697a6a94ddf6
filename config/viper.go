package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// viperKeys defines the mapping between config keys and their Viper
// counterparts.
const (
	keyWorkDuration       = "work.duration"
	keyWorkMessage        = "work.message"
	keyWorkColor          = "work.color"
	keyWorkIcon           = "work.icon"
	keyWorkSound          = "work.sound"
	keyShortBreakDuration = "short_break.duration"
	keyShortBreakMessage  = "short_break.message"
	keyShortBreakColor    = "short_break.color"
	keyShortBreakIcon     = "short_break.icon"
	keyLongBreakDuration  = "long_break.duration"
	keyLongBreakMessage   = "long_break.message"
	keyLongBreakColor     = "long_break.color"
	keyLongBreakIcon      = "long_break.icon"
	keyBreakSound         = "break.sound"
	keyLongBreakInterval  = "settings.long_break_interval"
	keyNotify             = "notifications.enabled"
	keySessionCmd         = "settings.cmd"
	keyPublishInterval    = "settings.publish_interval"
	keyDisplaySync        = "display.enabled"
	keyDisplayCmd         = "display.cmd"
	keyDisplayDebounce    = "display.debounce"
	keyDarkTheme          = "display.dark_theme"
)

func setViperDefaults(v *viper.Viper) {
	v.SetDefault(keyWorkDuration, "25m")
	v.SetDefault(keyWorkMessage, "Focus on your task")
	v.SetDefault(keyWorkColor, "#B0DB43")
	v.SetDefault(keyWorkIcon, "🍅")
	v.SetDefault(keyWorkSound, "loud_bell.ogg")
	v.SetDefault(keyShortBreakDuration, "5m")
	v.SetDefault(keyShortBreakMessage, "Take a breather")
	v.SetDefault(keyShortBreakColor, "#12EAEA")
	v.SetDefault(keyShortBreakIcon, "☕")
	v.SetDefault(keyLongBreakDuration, "15m")
	v.SetDefault(keyLongBreakMessage, "Take a long break")
	v.SetDefault(keyLongBreakColor, "#C492B1")
	v.SetDefault(keyLongBreakIcon, "🌴")
	v.SetDefault(keyBreakSound, "bell.ogg")
	v.SetDefault(keyLongBreakInterval, 4)
	v.SetDefault(keyNotify, true)
	v.SetDefault(keySessionCmd, "")
	v.SetDefault(keyPublishInterval, "15s")
	v.SetDefault(keyDisplaySync, true)
	v.SetDefault(keyDisplayCmd, "")
	v.SetDefault(keyDisplayDebounce, "500ms")
	v.SetDefault(keyDarkTheme, true)
}

// fromViper loads the configuration file, writing one with default values
// first if it does not exist yet.
func fromViper(configPath string) (*TimerConfig, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setViperDefaults(v)

	err := v.ReadInConfig()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file failed: %w", err)
		}

		if err = v.WriteConfig(); err != nil {
			return nil, fmt.Errorf("writing default config failed: %w", err)
		}
	}

	cfg := &TimerConfig{
		Durations:         make(map[SessType]time.Duration),
		Messages:          make(map[SessType]string),
		Colors:            make(map[SessType]string),
		Icons:             make(map[SessType]string),
		LongBreakInterval: v.GetInt(keyLongBreakInterval),
		Notify:            v.GetBool(keyNotify),
		SessionCmd:        v.GetString(keySessionCmd),
		WorkSound:         v.GetString(keyWorkSound),
		BreakSound:        v.GetString(keyBreakSound),
		PublishInterval:   v.GetDuration(keyPublishInterval),
		DisplaySync:       v.GetBool(keyDisplaySync),
		DisplayCmd:        v.GetString(keyDisplayCmd),
		DisplayDebounce:   v.GetDuration(keyDisplayDebounce),
		DarkTheme:         v.GetBool(keyDarkTheme),
	}

	durationKeys := map[SessType]string{
		Work:       keyWorkDuration,
		ShortBreak: keyShortBreakDuration,
		LongBreak:  keyLongBreakDuration,
	}

	for name, key := range durationKeys {
		dur, err := parseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid duration for %s: %w", name, err)
		}

		cfg.Durations[name] = dur
	}

	cfg.Messages[Work] = v.GetString(keyWorkMessage)
	cfg.Messages[ShortBreak] = v.GetString(keyShortBreakMessage)
	cfg.Messages[LongBreak] = v.GetString(keyLongBreakMessage)

	cfg.Colors[Work] = v.GetString(keyWorkColor)
	cfg.Colors[ShortBreak] = v.GetString(keyShortBreakColor)
	cfg.Colors[LongBreak] = v.GetString(keyLongBreakColor)

	cfg.Icons[Work] = v.GetString(keyWorkIcon)
	cfg.Icons[ShortBreak] = v.GetString(keyShortBreakIcon)
	cfg.Icons[LongBreak] = v.GetString(keyLongBreakIcon)

	return cfg, nil
}
