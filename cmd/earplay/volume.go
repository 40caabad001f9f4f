package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/earplay/internal/dbus"
	"github.com/jmylchreest/earplay/internal/volume"
)

var volumeOpts struct {
	local bool
}

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Show or change the playback volume",
	Long: `Show or change the playback volume.

The volume is a linear gain where 1 is unity. It is stored in the
preferences file and applied to every playback. When earplayd is running
the change is sent to it directly; otherwise only the stored value is
updated and a watching daemon picks it up from the file.`,
}

var volumeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current volume",
	Args:  cobra.NoArgs,
	RunE:  runVolumeGet,
}

var volumeSetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Set the volume",
	Example: `  earplay volume set 0.8
  earplay volume set 1.5   # values above 1 amplify`,
	Args: cobra.ExactArgs(1),
	RunE: runVolumeSet,
}

func init() {
	rootCmd.AddCommand(volumeCmd)
	volumeCmd.AddCommand(volumeGetCmd, volumeSetCmd)

	volumeCmd.PersistentFlags().BoolVar(&volumeOpts.local, "local", false,
		"Use the preferences file even if earplayd is running")
}

func runVolumeGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if client := daemonClient(); client != nil {
		defer func() { _ = client.Close() }()
		value, err := client.Volume(ctx)
		if err == nil {
			fmt.Println(value)
			return nil
		}
		logger.Warn("failed to query daemon volume, using stored value", "error", err)
	}

	fmt.Println(storedVolume().Value())
	return nil
}

func runVolumeSet(cmd *cobra.Command, args []string) error {
	value := args[0]
	if _, err := volume.Parse(value); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if client := daemonClient(); client != nil {
		defer func() { _ = client.Close() }()
		return client.SetVolume(ctx, value)
	}

	// No device here: the value is only stored and the gain is applied by
	// whoever plays next.
	return storedVolume().Persist(value)
}

// storedVolume returns a controller over the preferences file that drives
// no output.
func storedVolume() *volume.Controller {
	return volume.NewController(volume.GainFunc(func(float64) {}), prefs,
		volume.WithDefault(cfg.Audio.DefaultVolume),
		volume.WithLogger(logger))
}

// daemonClient returns a client for a running earplayd, or nil.
func daemonClient() *dbus.Client {
	if volumeOpts.local {
		return nil
	}
	client, err := dbus.Connect()
	if err != nil {
		if !errors.Is(err, dbus.ErrDaemonNotRunning) {
			logger.Debug("session bus unavailable", "error", err)
		}
		return nil
	}
	return client
}
