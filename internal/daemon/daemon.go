package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/jmylchreest/earplay/internal/assets"
	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/config"
	"github.com/jmylchreest/earplay/internal/dbus"
	"github.com/jmylchreest/earplay/internal/store"
	"github.com/jmylchreest/earplay/internal/volume"
)

var _ dbus.Handler = (*Daemon)(nil)

// Daemon ties the output, player, volume control and preferences together.
type Daemon struct {
	mu     sync.Mutex
	logger *slog.Logger
	cfg    *config.Config

	output     *audio.Output
	player     *audio.Player
	prefs      *store.Prefs
	slider     *volume.Slider
	controller *volume.Controller
	watcher    *store.PrefsWatcher

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// New creates a Daemon around an already initialized output.
// Extra player options are applied after the configured ones.
func New(cfg *config.Config, output *audio.Output, prefs *store.Prefs, logger *slog.Logger, playerOpts ...audio.PlayerOption) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.FetchTimeout()}
	opts := append([]audio.PlayerOption{
		audio.WithRetryPolicy(cfg.RetryPolicy()),
		audio.WithFetcher(audio.NewFetcher(httpClient, cfg.Server.UserAgent)),
		audio.WithLogger(logger),
	}, playerOpts...)

	return &Daemon{
		logger: logger,
		cfg:    cfg,
		output: output,
		player: audio.NewPlayer(output, opts...),
		prefs:  prefs,
		slider: volume.NewSlider(""),
		controller: volume.NewController(output, prefs,
			volume.WithDefault(cfg.Audio.DefaultVolume),
			volume.WithLogger(logger)),
	}
}

// Start binds the volume control and, if configured, starts watching the
// preference file.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	if err := d.controller.Setup(d.slider); err != nil {
		return err
	}

	if d.cfg.Daemon.WatchPrefs {
		watcher, err := store.WatchPrefs(d.prefs, d.onPrefsChanged, d.logger)
		if err != nil {
			return err
		}
		d.watcher = watcher
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.logger.Info("daemon started", "volume", d.slider.Value(), "prefs", d.prefs.Path())
	return nil
}

// Stop cancels in-flight sessions and releases the output.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	d.running = false

	d.cancel()
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			d.logger.Warn("failed to stop preference watcher", "error", err)
		}
	}
	d.output.Close()

	d.logger.Debug("daemon stopped")
}

// Play resolves url against the configured base URL and plays it.
func (d *Daemon) Play(url string) dbus.PlayReply {
	resolved, err := assets.Resolve(d.cfg.Server.BaseURL, url)
	if err != nil {
		return dbus.PlayReply{Outcome: string(audio.OutcomeFetchError), Error: err.Error()}
	}

	res := d.player.Play(d.context(), resolved)
	return replyFromResult(res)
}

// SetVolume moves the volume control as a user would.
func (d *Daemon) SetVolume(value string) error {
	if _, err := volume.Parse(value); err != nil {
		return err
	}
	d.slider.Set(value)
	return nil
}

// Volume returns the volume control's value.
func (d *Daemon) Volume() string {
	return d.slider.Value()
}

func (d *Daemon) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return context.Background()
	}
	return d.ctx
}

// onPrefsChanged re-applies a volume written by another process.
func (d *Daemon) onPrefsChanged() {
	if err := d.controller.Reload(); err != nil {
		d.logger.Warn("failed to apply reloaded volume", "error", err)
		return
	}
	d.logger.Debug("preferences reloaded", "volume", d.slider.Value())
}

func replyFromResult(res audio.Result) dbus.PlayReply {
	reply := dbus.PlayReply{
		SessionID: res.SessionID,
		Outcome:   string(res.Outcome),
		Finished:  res.Finished,
	}
	if res.Err != nil {
		reply.Error = res.Err.Error()
	}
	return reply
}
