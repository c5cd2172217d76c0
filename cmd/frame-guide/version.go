package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionText() string {
	return fmt.Sprintf("frame-guide %s\n  Build time: %s\n  Git commit: %s\n", Version, BuildTime, GitCommit)
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), versionText())
			return err
		},
	}
}
