package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"transcripter/internal/jobs"
	"transcripter/internal/language"
	"transcripter/internal/logging"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List media files discovered under the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			all, err := jobs.Discover(cfg.Paths.InputDir, cfg.Paths.OutputDir, logging.NewNop())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(all))
			for _, job := range all {
				if pendingOnly && job.Completed() {
					continue
				}
				status := "pending"
				if job.Completed() {
					status = "done"
				}
				rows = append(rows, []string{
					job.ProjectName,
					filepath.Base(job.SourcePath),
					languageLabel(job.Language),
					status,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			fmt.Fprint(out, renderTable([]string{"Project", "File", "Language", "Status"}, rows, nil))

			summary := jobs.Summarize(all)
			fmt.Fprintf(out, "%d jobs, %d complete, %d pending\n", summary.Total, summary.Completed, summary.Pending)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only list jobs without a transcript")
	return cmd
}

func languageLabel(value string) string {
	name := language.DisplayName(value)
	if code := language.Code(value); code != "" {
		return name + " (" + code + ")"
	}
	return name
}
