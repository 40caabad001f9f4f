package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/earplay/internal/adapter/output"
	"github.com/jmylchreest/earplay/internal/assets"
	"github.com/jmylchreest/earplay/internal/dbus"
)

var playOpts struct {
	interval int64
	retries  int
	daemon   bool
	noWait   bool
	format   string
	template string
}

var playCmd = &cobra.Command{
	Use:   "play [url]",
	Short: "Fetch and play an audio asset",
	Long: `Fetch an audio asset over HTTP and play it at the stored volume.

Relative URLs resolve against server.base_url. A 404 response means the
asset is still being generated: the request is retried after
retry.delay until it succeeds or retry.max_retries is used up.

Examples:
  # Play a file relative to the configured server
  earplay play /sounds/chime.wav

  # Play the generated audio for interval 42
  earplay play --interval 42

  # Hand playback to a running earplayd
  earplay play --daemon /sounds/chime.wav

  # Machine-readable result
  earplay play --format json https://example.com/a.ogg`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Int64Var(&playOpts.interval, "interval", 0,
		"Play the generated audio for this interval ID")
	playCmd.Flags().IntVar(&playOpts.retries, "retries", -1,
		"Retries allowed while the asset returns 404 (default: retry.max_retries)")
	playCmd.Flags().BoolVar(&playOpts.daemon, "daemon", false,
		"Play through a running earplayd instead of opening the device")
	playCmd.Flags().BoolVar(&playOpts.noWait, "no-wait", false,
		"Return once playback has started")
	playCmd.Flags().StringVarP(&playOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	playCmd.Flags().StringVar(&playOpts.template, "template", "",
		"Custom Go template for plain output")
}

func runPlay(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(playOpts.format)
	if err != nil {
		return err
	}

	url, err := playURL(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report output.PlayReport
	if playOpts.daemon {
		report, err = playViaDaemon(ctx, url)
	} else {
		report, err = playLocal(ctx, url, format)
	}
	if err != nil {
		return err
	}

	if playOpts.daemon || !report.OK() {
		if err := printPlay(format, report); err != nil {
			return err
		}
	}
	if !report.OK() {
		return fmt.Errorf("playback failed: %s", report.Outcome)
	}
	return nil
}

func playURL(args []string) (string, error) {
	switch {
	case playOpts.interval != 0 && len(args) > 0:
		return "", errors.New("give either a url or --interval, not both")
	case playOpts.interval != 0:
		return assets.IntervalURL(cfg.Server.BaseURL, cfg.Server.MediaPath, playOpts.interval)
	case len(args) == 1:
		return assets.Resolve(cfg.Server.BaseURL, args[0])
	default:
		return "", errors.New("a url or --interval is required")
	}
}

// playLocal plays through this process's own output. The report is printed
// as soon as playback starts, before waiting for the source to drain.
func playLocal(ctx context.Context, url string, format output.FormatType) (output.PlayReport, error) {
	local, err := newLocalPlayer()
	if err != nil {
		return output.PlayReport{}, err
	}
	defer local.Close()

	retries := local.player.Policy().MaxRetries
	if playOpts.retries >= 0 {
		retries = playOpts.retries
	}
	res := local.player.PlayWithRetries(ctx, url, retries)

	report := output.FromResult(res)
	if !res.OK() {
		return report, nil
	}
	if err := printPlay(format, report); err != nil {
		return report, err
	}

	if !playOpts.noWait {
		select {
		case <-res.Finished:
		case <-ctx.Done():
			logger.Debug("interrupted during playback", "session_id", res.SessionID)
		}
	}
	return report, nil
}

func playViaDaemon(ctx context.Context, url string) (output.PlayReport, error) {
	if playOpts.retries >= 0 {
		logger.Warn("--retries is ignored with --daemon, earplayd uses its own retry policy")
	}

	client, err := dbus.Connect()
	if err != nil {
		return output.PlayReport{}, err
	}
	defer func() { _ = client.Close() }()

	var reply dbus.PlayReply
	if playOpts.noWait {
		reply, err = client.Play(ctx, url)
	} else {
		reply, err = client.PlayAndWait(ctx, url)
	}
	switch {
	case errors.Is(err, dbus.ErrDaemonStopped):
		logger.Warn("earplayd went away before playback finished", "session_id", reply.SessionID)
	case err != nil && !errors.Is(err, context.Canceled):
		return output.PlayReport{}, err
	}

	return output.PlayReport{
		SessionID: reply.SessionID,
		URL:       url,
		Outcome:   reply.Outcome,
		Error:     reply.Error,
		Via:       "daemon",
	}, nil
}

func printPlay(format output.FormatType, report output.PlayReport) error {
	f := output.NewFormatter(format, output.FormatterOptions{Template: playOpts.template})
	return f.FormatPlay(os.Stdout, report)
}
