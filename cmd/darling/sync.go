package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRequireAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "require-all",
		Short: "Record every explicitly installed package of every backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			all, err := h.RequireAll()
			for _, name := range h.Registry().Names() {
				pkgs, ok := all[name]
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s failed, cache kept\n", name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d packages\n", name, len(pkgs))
			}
			return err
		},
	}
}

func newLoadInstalledCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load-installed",
		Short: "Reinstall every recorded package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			return h.LoadInstalled()
		},
	}
}
