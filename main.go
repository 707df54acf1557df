package main

import (
	"fmt"
	"os"

	"discord-wanderer/config"
	"discord-wanderer/models"
	"discord-wanderer/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *models.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wanderer",
	Short: "Discord bot that occasionally wanders into a lively channel",
	Long: `wanderer periodically scans the guilds it belongs to, scores their text
channels by recent human activity and posts at most one message per cycle
into the single best channel, under per-guild, global and hourly limits.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err = utils.NewLogger(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./config.yaml or ./config/config.yaml)")

	cooldownsCmd.AddCommand(cooldownsListCmd)
	cooldownsCmd.AddCommand(cooldownsPruneCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cooldownsCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
