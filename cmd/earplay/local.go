package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/earplay/internal/assets"
	"github.com/jmylchreest/earplay/internal/audio"
	"github.com/jmylchreest/earplay/internal/volume"
)

// localPlayer is an in-process output, player and volume control.
type localPlayer struct {
	output     *audio.Output
	player     *audio.Player
	slider     *volume.Slider
	controller *volume.Controller
}

// newLocalPlayer opens the audio device and binds the stored volume to it.
func newLocalPlayer() (*localPlayer, error) {
	output, err := audio.NewOutput(audio.NewSpeakerSink(), cfg.Audio.BufferSize.Duration(),
		audio.WithSampleRate(beep.SampleRate(cfg.Audio.SampleRate)),
		audio.WithOutputLogger(logger))
	if err != nil {
		return nil, err
	}

	slider := volume.NewSlider("")
	controller := volume.NewController(output, prefs,
		volume.WithDefault(cfg.Audio.DefaultVolume),
		volume.WithLogger(logger))
	if err := controller.Setup(slider); err != nil {
		output.Close()
		return nil, fmt.Errorf("failed to set up volume: %w", err)
	}

	player := audio.NewPlayer(output,
		audio.WithRetryPolicy(cfg.RetryPolicy()),
		audio.WithFetcher(audio.NewFetcher(&http.Client{Timeout: cfg.FetchTimeout()}, cfg.Server.UserAgent)),
		audio.WithLogger(logger))

	return &localPlayer{
		output:     output,
		player:     player,
		slider:     slider,
		controller: controller,
	}, nil
}

func (l *localPlayer) Close() {
	l.output.Close()
}

// resolveRef turns a URL, path or bare interval ID into an absolute URL.
func resolveRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return assets.IntervalURL(cfg.Server.BaseURL, cfg.Server.MediaPath, id)
	}
	return assets.Resolve(cfg.Server.BaseURL, ref)
}
