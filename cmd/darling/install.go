package main

import (
	"fmt"
	"maps"

	"github.com/danmuck/darling/pkg/backend"
	"github.com/spf13/cobra"
)

func newInstallCmd(a *app) *cobra.Command {
	var (
		props   map[string]string
		version string
	)
	cmd := &cobra.Command{
		Use:   "install <backend> <package>",
		Short: "Install a package through a backend and record it",
		Example: `  darling install npm typescript --version 5.6.3
  darling install brew ripgrep -p tap=burntsushi/ripgrep`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			entry := newEntry(args[1], props, version)
			if err := h.Install(args[0], entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s/%s\n", args[0], entry.Name)
			return nil
		},
	}
	cmd.Flags().StringToStringVarP(&props, "prop", "p", nil, "backend specific property key=value")
	cmd.Flags().StringVar(&version, "version", "", "package version, latest when empty")
	return cmd
}

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <backend> <package>",
		Short: "Uninstall a package through a backend and forget it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.host()
			if err != nil {
				return err
			}
			if err := h.Uninstall(args[0], backend.InstallationEntry{Name: args[1]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s/%s\n", args[0], args[1])
			return nil
		},
	}
}

func newEntry(name string, props map[string]string, version string) backend.InstallationEntry {
	entry := backend.InstallationEntry{Name: name}
	if len(props) == 0 && version == "" {
		return entry
	}
	entry.Properties = make(map[string]string, len(props)+1)
	maps.Copy(entry.Properties, props)
	if version != "" {
		entry.Properties[backend.PropertyVersion] = version
	}
	return entry
}
