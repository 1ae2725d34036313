package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VatsalSy/SqlProvider/internal/app"
)

var (
	cfgFile    string
	verbose    bool
	connection string
	rootCmd    = &cobra.Command{
		Use:   "sqlprovider",
		Short: "Run SQL against configured databases",
		Long: `SqlProvider is a CLI tool over a small data-access library.

Features:
  • Commands, scalars and queries with positional or named parameters
  • Result tables rendered as text, CSV or Markdown
  • Statement batches, optionally in one transaction
  • INSERT/UPDATE generation from query results
  • SQLite, PostgreSQL, MySQL and DuckDB drivers`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.sqlprovider/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVarP(&connection, "connection", "c", "",
		"connection name from the config, or a DSN")
	rootCmd.PersistentFlags().String("driver", "",
		"database driver (sqlite3, postgres, pgx, mysql, duckdb)")

	// Bind flags to viper
	viper.BindPFlag("database.driver", rootCmd.PersistentFlags().Lookup("driver"))

	// Add commands
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(scalarCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(configCmd)

	// Enable shell completion
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

// startApp loads configuration and builds the application. The returned
// context is canceled on SIGINT/SIGTERM.
func startApp(cmd *cobra.Command) (*app.App, context.Context, func(), error) {
	if verbose {
		viper.Set("log.level", "debug")
	}
	if connection != "" {
		viper.Set("database.connection", connection)
	}

	application, err := app.New()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := application.Initialize(cfgFile); err != nil {
		return nil, nil, nil, err
	}

	if verbose {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
	}

	ctx, cancel := application.Context(cmd.Context())
	cleanup := func() {
		cancel()
		application.Stop()
	}

	return application, ctx, cleanup, nil
}
