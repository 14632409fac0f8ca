package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ugparu/vkvideo/config"
)

// app carries what the persistent flags resolved to.
type app struct {
	configPath string
	logLevel   string
	settings   config.Settings
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "vkvideocheck",
		Short: "Validate video coding API usage",
		Long: `vkvideocheck runs recorded video API call scenarios through the session, parameters,
DPB and command validators and reports every rule a call breaks.

Settings come from an optional config file (toml, yaml or json) and VKVIDEO_ environment
variables, for example VKVIDEO_LOG_LEVEL=debug.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides the config")

	root.AddCommand(newCapsCmd(), newReplayCmd(a), newServeCmd(a), newSchemaCmd())
	return root
}

func (a *app) load() error {
	s, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
		if err = s.Validate(); err != nil {
			return err
		}
	}
	if err = s.Apply(); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	a.settings = s
	return nil
}
