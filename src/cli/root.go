package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var fileFlag string
	var songFlag string

	rootCmd := &cobra.Command{
		Use:   "stemsep [file]",
		Short: "Split a local audio file into stems",
		Long: "stemsep converts a local audio file to a canonical WAV profile, " +
			"publishes it to a temporary host, and runs it through a remote " +
			"stem separation service, printing a download link per stem.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if songFlag != "" {
				return errors.New("song search is not supported yet")
			}

			path := fileFlag
			if path == "" && len(args) == 1 {
				path = args[0]
			}

			if path == "" {
				return cmd.Help()
			}

			return runPipeline(cmd, path)
		},
	}

	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Path to a local audio file to separate")
	rootCmd.Flags().StringVarP(&songFlag, "song", "s", "", "Song name to search for (not implemented)")

	return rootCmd
}
