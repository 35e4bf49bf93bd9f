// Package main provides the CLI entry point for tabskin.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/tabskin/internal/app"
	"github.com/lepinkainen/tabskin/internal/config"
	"github.com/lepinkainen/tabskin/internal/proxy"
	"github.com/lepinkainen/tabskin/internal/tui"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Show struct{} `cmd:"show" default:"1" help:"Open the new-tab page in the terminal."`

	Refresh struct{} `cmd:"refresh" help:"Fetch a new background image now."`

	Status struct{} `cmd:"status" help:"Print the current image, settings and cache usage."`

	ClearCache struct{} `cmd:"clear-cache" help:"Delete every cached image."`

	Settings struct {
		Show struct{} `cmd:"show" help:"Print the stored settings as YAML."`

		Set struct {
			Language   string `help:"Interface language" enum:",en,ru" default:""`
			TimeFormat string `help:"Clock format" enum:",12,24" default:""`
			Theme      string `help:"Wallpaper theme query"`
			AutoSwitch string `help:"Change the background on a timer" enum:",on,off" default:""`
			Interval   int    `help:"Auto-switch interval in minutes"`
			Transition string `help:"Fade between backgrounds" enum:",on,off" default:""`
		} `cmd:"set" help:"Change one or more settings."`

		Export struct {
			Outfile string `help:"Output file path" short:"o" default:"tabskin-settings.yaml"`
		} `cmd:"export" help:"Write the stored settings to a YAML file."`

		Import struct {
			File string `arg:"" help:"YAML file written by export" type:"existingfile"`
		} `cmd:"import" help:"Replace the stored settings from a YAML file."`
	} `cmd:"settings" help:"Inspect and change user settings."`

	Serve struct {
		EnvFile []string `help:"Files to load environment variables from" default:".env"`
	} `cmd:"serve" help:"Run the photo proxy."`
}

func main() {
	// Parse CLI with Kong YAML configuration file loading
	ctx := kong.Parse(&CLI,
		kong.Name("tabskin"),
		kong.Description("A new-tab page with a changing photo background."),
		kong.Configuration(kongyaml.Loader, "tabskin.yaml", "~/.tabskin/tabskin.yaml"),
	)

	// Configure logging level based on debug flag
	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch ctx.Command() {
	case "show":
		withApp(cfg, func(a *app.App) error {
			return tui.Run(sigCtx, a)
		})

	case "refresh":
		withApp(cfg, func(a *app.App) error {
			return refresh(sigCtx, a)
		})

	case "status":
		withApp(cfg, func(a *app.App) error {
			status, err := a.Status(sigCtx, time.Now())
			if err != nil {
				return err
			}
			return app.RenderStatus(os.Stdout, status)
		})

	case "clear-cache":
		withApp(cfg, func(a *app.App) error {
			if err := a.ClearCache(sigCtx); err != nil {
				return err
			}
			fmt.Println(a.Message(app.MsgCacheCleared))
			return nil
		})

	case "settings show":
		withApp(cfg, func(a *app.App) error {
			return writeSettings(os.Stdout, a.Settings(sigCtx))
		})

	case "settings set":
		withApp(cfg, func(a *app.App) error {
			return setSettings(sigCtx, a)
		})

	case "settings export":
		withApp(cfg, func(a *app.App) error {
			return exportSettings(sigCtx, a, CLI.Settings.Export.Outfile)
		})

	case "settings import <file>":
		withApp(cfg, func(a *app.App) error {
			return importSettings(sigCtx, a, CLI.Settings.Import.File)
		})

	case "serve":
		if err := serve(sigCtx, cfg); err != nil {
			slog.Error("Proxy failed", "error", err)
			os.Exit(1)
		}

	default:
		panic(ctx.Command())
	}
}

// withApp opens the profile, runs fn and closes the profile again
func withApp(cfg *config.Config, fn func(a *app.App) error) {
	a, err := app.Open(cfg)
	if err != nil {
		slog.Error("Failed to open profile", "error", err)
		os.Exit(1)
	}

	runErr := fn(a)
	if err := a.Close(); err != nil {
		slog.Warn("Failed to close profile", "error", err)
	}
	if runErr != nil {
		slog.Error("Command failed", "error", runErr)
		os.Exit(1)
	}
}

// refresh fetches a new image and prints the photographer credit
func refresh(ctx context.Context, a *app.App) error {
	a.ApplySettings(a.Settings(ctx))

	result, err := a.Refresh(ctx)
	if err != nil {
		for _, item := range a.ActiveToasts() {
			fmt.Fprintln(os.Stderr, item.Text)
		}
		return err
	}

	fmt.Println(tui.FormatAttribution(a.Message, result.Metadata))
	fmt.Println(result.Metadata.URL)
	return nil
}

// serve runs the photo proxy until ctx is cancelled
func serve(ctx context.Context, cfg *config.Config) error {
	env, err := proxy.LoadEnv(CLI.Serve.EnvFile...)
	if err != nil {
		return err
	}

	opts := proxy.Options{
		CacheTTL:         cfg.Proxy.CacheTTL,
		CacheSize:        cfg.Proxy.CacheSize,
		RateLimitPerHour: cfg.Proxy.RateLimitPerHour,
		ShutdownTimeout:  10 * time.Second,
	}
	if env.CacheTTL > 0 {
		opts.CacheTTL = env.CacheTTL
	}

	upstream := proxy.NewUnsplashUpstream(
		cfg.Proxy.UpstreamURL,
		env.AccessKey,
		cfg.Proxy.UpstreamRatePerHour,
		&http.Client{Timeout: cfg.Client.RequestTimeout},
	)

	return proxy.New(upstream, opts).Run(ctx, env.ListenAddr(cfg.Proxy.Listen))
}
