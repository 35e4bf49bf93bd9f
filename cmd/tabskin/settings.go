package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/tabskin/internal/app"
	"github.com/lepinkainen/tabskin/internal/settings"
)

// setSettings applies the non-empty settings flags on top of the stored settings
func setSettings(ctx context.Context, a *app.App) error {
	flags := CLI.Settings.Set
	s := a.Settings(ctx)

	if flags.Language != "" {
		s.Language = flags.Language
	}
	if flags.TimeFormat != "" {
		s.TimeFormat = flags.TimeFormat
	}
	if flags.Theme != "" {
		s.Theme = flags.Theme
	}
	if flags.AutoSwitch != "" {
		s.AutoSwitchEnabled = flags.AutoSwitch == "on"
	}
	if flags.Interval != 0 {
		s.AutoSwitchIntervalMinutes = flags.Interval
	}
	if flags.Transition != "" {
		s.TransitionEnabled = flags.Transition == "on"
	}

	if err := a.SaveSettings(ctx, s); err != nil {
		return err
	}
	fmt.Println(a.Message(app.MsgSettingsSaved))
	return nil
}

func writeSettings(w io.Writer, s settings.UserSettings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return enc.Close()
}

func exportSettings(ctx context.Context, a *app.App, outfile string) error {
	f, err := os.Create(outfile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outfile, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close settings file", "file", outfile, "error", err)
		}
	}()

	if err := writeSettings(f, a.Settings(ctx)); err != nil {
		return err
	}
	slog.Info("Settings exported", "file", outfile)
	return nil
}

// importSettings starts from the defaults so keys missing in the file reset
func importSettings(ctx context.Context, a *app.App, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	s := settings.Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse %s: %w", file, err)
	}

	if err := a.SaveSettings(ctx, s); err != nil {
		return err
	}
	fmt.Println(a.Message(app.MsgSettingsSaved))
	return nil
}
