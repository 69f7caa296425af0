package commands

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/hostbridge"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Shows or writes the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := toml.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(a.cfg)
		},
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init PATH",
		Short: "Writes the default configuration to PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := hostbridge.SaveConfig(args[0], hostbridge.DefaultConfig()); err != nil {
				return err
			}
			a.log.Info("wrote default configuration", "path", args[0])
			return nil
		},
	})

	return configCmd
}
