package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ingredient-moderator/internal/cli"
	"github.com/Veraticus/ingredient-moderator/internal/common"
	"github.com/Veraticus/ingredient-moderator/internal/config"
)

var (
	cfgFile string
	envFile string
	version = "dev"
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "moderator",
		Short: "🧺 Ingredient-to-product matching and moderation",
		Long: `moderator links free-text recipe ingredients to catalog products.

Exact and fuzzy matching answer most names for free; remembered decisions
answer repeats; whatever is left is batched to a reasoning service, and
anything uncertain becomes a task for a human reviewer.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/moderator/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(duplicatesCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(decisionsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(fmt.Sprintf("%s/.config/moderator", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded configuration", "file", used)
	}
	return nil
}

func setupLogging(lc config.LoggingConfig) error {
	level, err := common.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	return common.SetupLogger(level, lc.Format)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("moderator version", "version", version)
		},
	}
}
