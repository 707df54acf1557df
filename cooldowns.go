package main

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"discord-wanderer/database"

	"github.com/spf13/cobra"
)

var pruneMaxAge time.Duration

var cooldownsCmd = &cobra.Command{
	Use:   "cooldowns",
	Short: "Inspect and maintain the persisted guild cooldowns",
}

var cooldownsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the last post time of every guild",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := database.OpenCooldownStore(cmd.Context(), cfg.Cooldown, logger.Named("store"))
		if err != nil {
			return fmt.Errorf("failed to open cooldown store: %w", err)
		}
		defer store.Close()

		records, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		return printCooldowns(cmd, records, time.Now())
	},
}

var cooldownsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cooldown records older than the max age",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAge := cfg.Wander.CooldownMaxAge
		if cmd.Flags().Changed("max-age") {
			maxAge = pruneMaxAge
		}

		store, err := database.OpenCooldownStore(cmd.Context(), cfg.Cooldown, logger.Named("store"))
		if err != nil {
			return fmt.Errorf("failed to open cooldown store: %w", err)
		}
		defer store.Close()

		removed, err := database.CleanupOldCooldowns(cmd.Context(), store, time.Now(), maxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cooldown record(s) older than %s\n", removed, maxAge)
		return nil
	},
}

func init() {
	cooldownsPruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 7*24*time.Hour, "Records older than this are removed (default: wander.cooldown_max_age)")
}

func printCooldowns(cmd *cobra.Command, records map[string]int64, now time.Time) error {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cooldown records.")
		return nil
	}

	guildIDs := make([]string, 0, len(records))
	for id := range records {
		guildIDs = append(guildIDs, id)
	}
	// most recent first
	slices.SortFunc(guildIDs, func(a, b string) int {
		switch {
		case records[a] > records[b]:
			return -1
		case records[a] < records[b]:
			return 1
		default:
			return 0
		}
	})

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GUILD\tLAST POST\tAGE")
	for _, id := range guildIDs {
		last := time.UnixMilli(records[id]).UTC()
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, last.Format(time.RFC3339), now.Sub(last).Truncate(time.Minute))
	}
	return tw.Flush()
}
