package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/earplay/internal/adapter/output"
	"github.com/jmylchreest/earplay/internal/config"
	"github.com/jmylchreest/earplay/internal/dbus"
	"github.com/jmylchreest/earplay/internal/volume"
)

var statusOpts struct {
	format   string
	template string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, stored volume and daemon state",
	Long: `Show where earplay reads its configuration and preferences from,
the stored volume and whether earplayd is reachable on the session bus.

Use --format json or --format yaml for scripting, or --template for a
custom line, e.g. for a status bar:

  earplay status --template '{{.Volume}}{{if .Daemon}} ●{{end}}'`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", "plain",
		"Output format (plain, json, yaml)")
	statusCmd.Flags().StringVar(&statusOpts.template, "template", "",
		"Custom Go template for plain output")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOpts.format)
	if err != nil {
		return err
	}

	configPath := globalOpts.configPath
	if configPath == "" {
		configPath = config.ConfigPath()
	}

	_, stored := prefs.Get(volume.Key)
	report := output.StatusReport{
		Version:      version,
		ConfigPath:   configPath,
		PrefsPath:    prefs.Path(),
		BaseURL:      cfg.Server.BaseURL,
		Volume:       storedVolume().Value(),
		VolumeStored: stored,
		PrefsUpdated: prefs.ModTime(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if client, err := dbus.Connect(); err == nil {
		report.Daemon = true
		if v, err := client.Volume(ctx); err == nil {
			report.DaemonVolume = v
		}
		_ = client.Close()
	}

	f := output.NewFormatter(format, output.FormatterOptions{Template: statusOpts.template})
	return f.FormatStatus(os.Stdout, report)
}
