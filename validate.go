package main

import (
	"fmt"

	"discord-wanderer/database"
	"discord-wanderer/quotes"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration, content file and cooldown store",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		report := func(ok bool, format string, a ...any) {
			mark := "✓"
			if !ok {
				mark = "✗"
				failed++
			}
			fmt.Fprintf(out, "%s %s\n", mark, fmt.Sprintf(format, a...))
		}

		report(true, "configuration is valid (cooldown backend: %s)", cfg.Cooldown.Backend)
		report(cfg.Discord.Token != "", "discord token is set")

		content, err := quotes.Load(cfg.Content.Path)
		if err != nil {
			report(false, "content file: %v", err)
		} else {
			generic, special := content.Counts()
			report(true, "content file %s: %d generic message(s), %d channel-specific set(s)", cfg.Content.Path, generic, special)
		}

		store, err := database.OpenCooldownStore(cmd.Context(), cfg.Cooldown, logger.Named("store"))
		if err != nil {
			report(false, "cooldown store: %v", err)
		} else {
			defer store.Close()
			records, err := store.Load(cmd.Context())
			if err != nil {
				report(false, "cooldown store: %v", err)
			} else {
				report(true, "cooldown store readable: %d record(s)", len(records))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}
