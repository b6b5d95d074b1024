package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"transcripter/internal/journal"
	"transcripter/internal/logging"
	"transcripter/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var lastRun bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the run log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			match := runID
			if lastRun && match == "" {
				err := ctx.withJournal(func(store *journal.Store) error {
					last, lookupErr := store.LastRunID(cmd.Context())
					match = last
					return lookupErr
				})
				if err != nil {
					return err
				}
				if match == "" {
					return fmt.Errorf("no runs recorded in the journal")
				}
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.FileName)
			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines, match)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 250*time.Millisecond, match, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only show lines mentioning this run id")
	cmd.Flags().BoolVar(&lastRun, "last-run", false, "Only show lines from the most recent journaled run")
	return cmd
}
