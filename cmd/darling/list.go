package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			for _, e := range h.Registry().Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", e.Identity, e.Package)
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <backend>",
		Short: "List the packages a backend reports as explicitly installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			pkgs, err := h.Dispatcher().ListExplicit(args[0])
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Fprintln(cmd.OutOrStdout(), formatPackage(p.Name, p.Version))
			}
			return nil
		},
	}
}

func newInstalledCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "Show the recorded packages per backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			installed := h.Installed()
			for _, name := range h.Registry().Names() {
				entries, ok := installed[name]
				if !ok {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", name)
				for _, e := range entries {
					fmt.Fprintln(cmd.OutOrStdout(), "  "+formatPackage(e.Name, e.Version()))
				}
			}
			return nil
		},
	}
}

func formatPackage(name, version string) string {
	if version == "" {
		return name
	}
	return name + " " + version
}
