// Package main is the entry point for the earplayd playback daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/config"
	"github.com/jmylchreest/earplay/internal/daemon"
	"github.com/jmylchreest/earplay/internal/dbus"
	"github.com/jmylchreest/earplay/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/earplay/config.toml)")
	prefsPath := flag.String("prefs-file", "", "Path to preferences file (default: ~/.local/share/earplay/prefs.json)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("earplayd version", version)
		os.Exit(0)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := run(logger, *configPath, *prefsPath); err != nil {
		logger.Error("earplayd failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, prefsPath string) error {
	logger.Info("starting earplayd", "version", version)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := config.EnsureDataDir(); err != nil {
		return err
	}
	if prefsPath == "" {
		prefsPath = config.PrefsPath()
	}
	prefs, err := store.OpenPrefs(prefsPath)
	if err != nil {
		return err
	}

	output, err := audio.NewOutput(audio.NewSpeakerSink(), cfg.Audio.BufferSize.Duration(),
		audio.WithSampleRate(beep.SampleRate(cfg.Audio.SampleRate)),
		audio.WithOutputLogger(logger))
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg, output, prefs, logger)
	if err := d.Start(ctx); err != nil {
		output.Close()
		return err
	}
	defer d.Stop()

	server := dbus.NewServer(d, logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("failed to stop D-Bus server", "error", err)
		}
	}()

	logger.Info("earplayd ready", "bus_name", dbus.DBusBusName, "base_url", cfg.Server.BaseURL)

	<-ctx.Done()
	logger.Info("received signal, shutting down")
	return nil
}
