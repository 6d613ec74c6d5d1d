package main

import (
	"github.com/danmuck/darling/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			return server.New(h, addr, a.cfg.CorsOrigins, log.Logger, server.WithToken(a.cfg.APIToken)).Serve()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to listen_addr")
	return cmd
}
