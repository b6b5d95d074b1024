package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"transcripter/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var bypassProxy bool
	var headless bool
	var maxWorkers int
	var maxRounds int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transcribe every pending media file under the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("bypass-proxy") {
				cfg.Proxy.Bypass = bypassProxy
			}
			if flags.Changed("headless") {
				cfg.Browser.Headless = headless
			}
			if flags.Changed("max-workers") {
				cfg.Dispatch.MaxWorkers = maxWorkers
			}
			if flags.Changed("max-rounds") {
				cfg.Dispatch.MaxRounds = maxRounds
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			manager := workflow.NewManager(cfg, newOpener(cfg, logger), logger)
			report, runErr := manager.Run(cmd.Context())
			if errors.Is(runErr, workflow.ErrRunInProgress) {
				return runErr
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Run "+report.RunID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Rounds", statusInfo, fmt.Sprintf("%d", report.Rounds), colorize))
			fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo,
				fmt.Sprintf("%d (%d discarded)", report.Dispatch.Attempts, report.Dispatch.Discarded), colorize))
			fmt.Fprintln(out, renderStatusLine("Proxies evicted", statusInfo, fmt.Sprintf("%d", report.Dispatch.Evicted), colorize))
			fmt.Fprintln(out, renderStatusLine("Proxies left", statusInfo, fmt.Sprintf("%d", report.ProxiesLeft), colorize))
			kind := statusOK
			if !report.Done() {
				kind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Transcripts", kind,
				fmt.Sprintf("%d/%d complete", report.Completed, report.Total), colorize))
			fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, report.Elapsed.Round(time.Second).String(), colorize))

			if runErr != nil {
				return runErr
			}
			if !report.Done() {
				return fmt.Errorf("%d of %d jobs still pending", report.Pending, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&bypassProxy, "bypass-proxy", false, "Use a direct connection instead of the proxy pool")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser without a window")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Override dispatch.max_workers")
	cmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Override dispatch.max_rounds (0 means unlimited)")
	return cmd
}
