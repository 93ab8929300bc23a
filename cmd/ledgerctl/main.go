package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-finance-tracker/config"
	"github.com/goliatone/go-finance-tracker/pkg/di"
)

var (
	cfgFile  string
	envFiles []string
	v        = config.New()
	app      *di.Container

	rootCmd = &cobra.Command{
		Use:   "ledgerctl",
		Short: "Manage categories, transactions and statistics of the finance tracker",
		Long: `ledgerctl drives the finance tracker services directly against the
configured database and cache. Output is JSON on stdout.`,
		SilenceUsage:       true,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files loaded before the environment is read")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("db-driver", "", "database driver (sqlite3, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database DSN")

	bindFlag(v, "log.level", "log-level")
	bindFlag(v, "log.format", "log-format")
	bindFlag(v, "database.driver", "db-driver")
	bindFlag(v, "database.dsn", "dsn")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(transactionsCmd())
	rootCmd.AddCommand(statsCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func bindFlag(v *viper.Viper, key, flag string) {
	_ = v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	// The migrate command reports what it applied itself.
	if cmd.Name() == "migrate" {
		cfg.Database.AutoMigrate = false
	}

	app, err = di.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if app == nil {
		return nil
	}
	return app.Close()
}
