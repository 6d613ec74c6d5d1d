package main

import (
	"github.com/danmuck/darling/internal/config"
	"github.com/danmuck/darling/internal/host"
	"github.com/danmuck/darling/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	hostOpts   []host.Option
	cfg        config.Config
}

func newRootCmd(opts ...host.Option) *cobra.Command {
	a := &app{
		hostOpts: append([]host.Option{host.WithModules(externalModules...)}, opts...),
	}

	root := &cobra.Command{
		Use:   "darling",
		Short: "Install and track packages across package managers",
		Long: `darling routes package operations to backend modules (npm, vscode,
brew, ...) and records what it installed so the set can be restored later.

The reserved "module" backend manages the backend modules themselves:
  darling install module github.com/acme/darling-pacman`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logging.ConfigureRuntime()
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logging.ApplyLevel(cfg.LogLevel)
			a.cfg = cfg
			log.Debug().Str("config", a.configPath).Str("source", cfg.SourceLocation).Msg("config loaded")
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "path to darling.toml")

	root.AddCommand(
		newInstallCmd(a),
		newUninstallCmd(a),
		newRequireAllCmd(a),
		newLoadInstalledCmd(a),
		newBackendsCmd(a),
		newListCmd(a),
		newInstalledCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) host() (*host.Host, error) {
	return host.New(a.cfg, a.hostOpts...)
}
