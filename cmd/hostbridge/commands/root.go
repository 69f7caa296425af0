// Package commands implements the hostbridge command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/hostbridge"
	"github.com/obinnaokechukwu/hostbridge/internal/logger"
)

// app carries state shared by the subcommands.
type app struct {
	log        *logger.Logger
	configPath string
	cfg        hostbridge.Config
}

func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	a := &app{log: log}

	rootCmd := &cobra.Command{
		SilenceErrors: true,
		SilenceUsage:  true,
		Use:           "hostbridge",
		Short:         "Runs the native host adapters from the command line",
		Long: `hostbridge delivers the results of native asynchronous operations back
	into a managed runtime.

	This tool drives the same adapters directly: HTTP requests and downloads
	completed through the callback bridge, and the host filesystem queries.`,
		PersistentPreRunE: a.loadConfig,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", fmt.Sprintf("Path to the configuration file. Defaults to $%s, then ./%s.", hostbridge.ConfigEnv, hostbridge.DefaultConfigFile))
	log.AddLevelFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newExePathCmd(a))
	rootCmd.AddCommand(newTouchCmd(a))
	rootCmd.AddCommand(newFetchCmd(a))
	rootCmd.AddCommand(newDownloadCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd, nil
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := hostbridge.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	// The verbosity flag wins over the configured level.
	if !cmd.Flags().Changed("verbosity") && cfg.Log.Level != "" {
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			a.log.Error(err, "ignoring configured log level")
		} else {
			a.log.SetLevel(level)
		}
	}
	if cfg.Log.DiagnosticsDir != "" {
		level := a.log.Level()
		a.log = logger.New("hostbridge", logger.Options{DiagnosticsDir: cfg.Log.DiagnosticsDir})
		a.log.SetLevel(level)
		a.log.V(1).Info("writing diagnostics log", "path", a.log.DiagnosticsFile())
	}

	hostbridge.SetLogger(a.log.Logger)
	hostbridge.InitProcess(cfg)
	return nil
}
