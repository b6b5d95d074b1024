package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transcripter/internal/deps"
	"transcripter/internal/proxy"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run transcriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			failed := false

			configMsg := ctx.configPath
			if _, err := os.Stat(ctx.configPath); err != nil {
				configMsg += " (not found, defaults in use)"
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configMsg, colorize))

			if info, err := os.Stat(cfg.Paths.InputDir); err != nil || !info.IsDir() {
				failed = true
				fmt.Fprintln(out, renderStatusLine("Input directory", statusError, cfg.Paths.InputDir+" is missing", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Input directory", statusOK, cfg.Paths.InputDir, colorize))
			}

			statuses := deps.CheckBinaries([]deps.Requirement{{
				Name:         "Browser",
				Alternatives: cfg.BrowserBinaries(),
				Description:  "Chrome or Chromium for the remote upload flow",
			}})
			for _, status := range statuses {
				if status.Available {
					fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, status.Command, colorize))
					continue
				}
				kind := statusError
				if status.Optional {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, status.Detail, colorize))
			}
			if len(deps.Missing(statuses)) > 0 {
				failed = true
			}

			switch list, _, ok, err := proxy.ReadCache(cfg.Proxy.CachePath); {
			case cfg.Proxy.Bypass:
				fmt.Fprintln(out, renderStatusLine("Proxies", statusWarn, "bypass enabled, direct connection", colorize))
			case err != nil:
				fmt.Fprintln(out, renderStatusLine("Proxies", statusWarn, "cache unreadable: "+err.Error(), colorize))
			case !ok || len(list) == 0:
				fmt.Fprintln(out, renderStatusLine("Proxies", statusInfo, "cache empty, fetched on next run", colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Proxies", statusOK, fmt.Sprintf("%d cached", len(list)), colorize))
			}

			if failed {
				return errors.New("environment check failed")
			}
			return nil
		},
	}
}
