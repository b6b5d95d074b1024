package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"transcripter/internal/journal"
)

var errJournalDisabled = errors.New("journal.enabled is false; no attempt history is kept")

func (c *commandContext) withJournal(fn func(*journal.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return errJournalDisabled
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var allRuns bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled upload attempts (latest run by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				out := cmd.OutOrStdout()
				target := runID
				if target == "" && !allRuns {
					last, err := store.LastRunID(cmd.Context())
					if err != nil {
						return err
					}
					if last == "" {
						fmt.Fprintln(out, "No attempts recorded")
						return nil
					}
					target = last
				}
				entries, err := store.Recent(cmd.Context(), target, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No attempts recorded")
					return nil
				}
				if target != "" {
					fmt.Fprintf(out, "Run %s\n", target)
				}
				fmt.Fprint(out, renderTable(
					[]string{"Finished", "Project", "File", "Proxy", "Outcome", "State", "Retries", "Applied"},
					historyRows(entries),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show a specific run")
	cmd.Flags().BoolVar(&allRuns, "all", false, "Show attempts across all runs")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum attempts to show")
	cmd.AddCommand(newHistoryProxiesCommand(ctx))
	return cmd
}

func historyRows(entries []journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.FinishedAt.Local().Format(time.DateTime),
			e.Project,
			filepath.Base(e.JobSource),
			e.Proxy,
			e.Outcome,
			e.FinalState,
			strconv.Itoa(e.RetriesUsed),
			yesNo(e.Applied),
		})
	}
	return rows
}

func newHistoryProxiesCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "proxies",
		Short: "Summarize attempt outcomes per proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(store *journal.Store) error {
				stats, err := store.ProxyStats(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(stats) == 0 {
					fmt.Fprintln(out, "No attempts recorded")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, stat := range stats {
					rows = append(rows, []string{
						stat.Proxy,
						strconv.Itoa(stat.Attempts),
						strconv.Itoa(stat.Successes),
						strconv.Itoa(stat.Failures),
						stat.LastSeen.Local().Format(time.DateTime),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Proxy", "Attempts", "Successes", "Failures", "Last seen"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum proxies to show")
	return cmd
}
