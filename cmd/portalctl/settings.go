package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/config"
	"github.com/siddesa/portal/internal/database"
	"github.com/siddesa/portal/internal/plugins/settings"
)

func newSettingsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read public settings or reset the shared cache",
	}
	cmd.AddCommand(newSettingsGetCmd(g), newSettingsInvalidateCmd(g))
	return cmd
}

func newSettingsGetCmd(g *globals) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch the public settings from the village API",
		Long: `Get fetches the public settings and prints them grouped the way the
portal caches them. --raw prints the API's flat key/value map instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flat, err := apiclient.New(g.apiBaseURL, 15*time.Second).GetSettings(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching settings: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if raw {
				return enc.Encode(flat)
			}
			snap := settings.Transform(flat)
			snap.FetchedAt = time.Now().UTC()
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the flat key/value map")
	return cmd
}

func newSettingsInvalidateCmd(g *globals) *cobra.Command {
	var (
		redisURL string
		prefix   string
	)

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop the cached settings snapshot from Redis",
		Long: `Invalidate removes the cached settings value and timestamp so every
portal instance refetches on the next page view. The version key is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), colorEnabled(g.noColor))

			rdb, err := database.NewRedis(config.RedisConfig{URL: redisURL})
			if err != nil {
				return err
			}
			defer rdb.Close()

			if err := settings.NewRedisStore(rdb, prefix).Invalidate(cmd.Context()); err != nil {
				return err
			}
			p.Success("settings cache invalidated")
			return nil
		},
	}

	defaultRedis := os.Getenv("REDIS_URL")
	if defaultRedis == "" {
		defaultRedis = "redis://localhost:6379"
	}
	cmd.Flags().StringVar(&redisURL, "redis", defaultRedis, "Redis URL")
	cmd.Flags().StringVar(&prefix, "prefix", settings.DefaultKeyPrefix, "cache key prefix")
	return cmd
}
