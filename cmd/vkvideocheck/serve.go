package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ugparu/vkvideo/config"
	"github.com/ugparu/vkvideo/layer"
	"github.com/ugparu/vkvideo/profile"
	"github.com/ugparu/vkvideo/scenario"
	"github.com/ugparu/vkvideo/server"
	"github.com/ugparu/vkvideo/utils/logger"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		pprofOn bool
	)
	cmd := &cobra.Command{
		Use:   "serve [scenario.json]...",
		Short: "Serve tracked objects and diagnostics over HTTP",
		Long: `Replay the given scenarios into one device and serve its sessions, parameters, capabilities
and collected diagnostics until interrupted. With --config the file is watched and log level
changes apply without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := a.settings
			if cmd.Flags().Changed("addr") {
				settings.DebugAddr = addr
			}
			if cmd.Flags().Changed("pprof") {
				settings.Pprof = pprofOn
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			if a.configPath != "" {
				if _, err := config.Watch(a.configPath, func(s config.Settings) {
					if err := s.Apply(); err != nil {
						logger.Warningf(a.configPath, "Failed to apply settings: %v", err)
					}
				}); err != nil {
					return err
				}
			}

			collector := settings.Collector()
			dev := layer.New(profile.DefaultProvider(), settings.Sink(collector))
			runner := scenario.NewRunner(dev)
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				results, err := runner.Run(sc)
				if err != nil {
					return err
				}
				printResults(cmd.OutOrStdout(), sc.Name, results, true)
			}

			srv := server.New(dev, collector, settings)
			if err := srv.Listen(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", srv.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case <-ctx.Done():
			case <-srv.Dead():
			}
			srv.Close()
			<-srv.Dead()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides debug_addr")
	cmd.Flags().BoolVar(&pprofOn, "pprof", false, "expose /debug/pprof")
	return cmd
}
