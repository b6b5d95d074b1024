package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"transcripter/internal/journal"
	"transcripter/internal/proxy"
	"transcripter/internal/workflow"
)

func newProxiesCommand(ctx *commandContext) *cobra.Command {
	proxiesCmd := &cobra.Command{
		Use:   "proxies",
		Short: "Inspect and manage the cached proxy pool",
	}

	proxiesCmd.AddCommand(newProxiesListCommand(ctx))
	proxiesCmd.AddCommand(newProxiesRefreshCommand(ctx))
	proxiesCmd.AddCommand(newProxiesEvictCommand(ctx))

	return proxiesCmd
}

func newProxiesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show cached proxies with their attempt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			list, modTime, ok, err := proxy.ReadCache(cfg.Proxy.CachePath)
			if err != nil {
				return err
			}
			if !ok || len(list) == 0 {
				fmt.Fprintln(out, "Proxy cache is empty")
				return nil
			}

			stats := map[string]journal.ProxyStat{}
			if cfg.Journal.Enabled {
				if store, err := journal.Open(cfg.Journal.Path); err == nil {
					rows, err := store.ProxyStats(cmd.Context(), 1000)
					store.Close()
					if err != nil {
						return err
					}
					for _, stat := range rows {
						stats[stat.Proxy] = stat
					}
				}
			}

			rows := make([][]string, 0, len(list))
			for _, p := range list {
				stat := stats[p.ID()]
				rows = append(rows, []string{
					p.Host,
					strconv.Itoa(p.Port),
					strconv.Itoa(stat.Attempts),
					strconv.Itoa(stat.Successes),
					strconv.Itoa(stat.Failures),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Host", "Port", "Attempts", "Successes", "Failures"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			age := time.Since(modTime).Round(time.Second)
			fresh := age < time.Duration(cfg.Proxy.MaxAgeSeconds)*time.Second
			fmt.Fprintf(out, "%d proxies, cached %s ago (fresh: %s)\n", len(list), age, yesNo(fresh))
			return nil
		},
	}
}

func newProxiesRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch a new proxy list and overwrite the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Proxy.Bypass {
				return fmt.Errorf("proxy.bypass is enabled; nothing to refresh")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			pool, err := workflow.NewLoader(cfg, logger).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d proxies into %s\n", pool.Len(), cfg.Proxy.CachePath)
			return nil
		},
	}
}

func newProxiesEvictCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "evict <host:port>...",
		Short: "Remove proxies from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, modTime, _, err := proxy.ReadCache(cfg.Proxy.CachePath)
			if err != nil {
				return err
			}
			pool := proxy.NewPool(cfg.Proxy.CachePath, list, modTime, proxy.OriginCache)
			out := cmd.OutOrStdout()
			for _, arg := range args {
				target, err := proxy.Parse(arg)
				if err != nil {
					return err
				}
				removed, err := pool.Evict(target.ID())
				if err != nil {
					return fmt.Errorf("evict %s: %w", target, err)
				}
				if removed {
					fmt.Fprintf(out, "Evicted %s\n", target)
				} else {
					fmt.Fprintf(out, "%s not in cache\n", target)
				}
			}
			fmt.Fprintf(out, "%d proxies remain\n", pool.Len())
			return nil
		},
	}
}
