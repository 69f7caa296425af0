package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/hostbridge"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the hostbridge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), hostbridge.Version)
		},
	}
}

func newExePathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exe-path",
		Short: "Prints the absolute path of the running executable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, ok := hostbridge.GetExecutablePath()
			if !ok {
				return hostbridge.ErrNotFound
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newTouchCmd(a *app) *cobra.Command {
	var mtime string

	touchCmd := &cobra.Command{
		Use:   "touch PATH",
		Short: "Sets the modification time of a file",
		Long: `Sets the access and modification time of an existing file. Without
--mtime the current time is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !cmd.Flags().Changed("mtime") {
				return hostbridge.TouchFileNow(path)
			}
			millis, err := strconv.ParseInt(mtime, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid --mtime %q: %w", mtime, err)
			}
			a.log.V(1).Info("setting modification time", "path", path, "epochMillis", millis)
			return hostbridge.SetFileModifiedTime(path, millis)
		},
	}
	touchCmd.Flags().StringVar(&mtime, "mtime", "", "Modification time in milliseconds since the Unix epoch. Truncated to whole seconds.")

	return touchCmd
}
