package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/earplay/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive volume and playback view",
	Long: `Launch the interactive terminal interface.

The TUI shows the volume as a slider and a field to play URLs from.
Volume changes are stored immediately and apply to sounds already playing.
An interval ID on its own plays that interval's generated audio.

Key bindings:
  ←/h, →/l    Volume down/up
  m           Mute
  tab         Switch between volume and URL field
  enter       Play the URL
  ?           Toggle help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := newLocalPlayer()
	if err != nil {
		return err
	}
	defer local.Close()

	return tui.Run(ctx, tui.RunOptions{
		Slider:  local.slider,
		Player:  local.player,
		Resolve: resolveRef,
	})
}
