// Command paramctl administers the parameter service's database and job configuration.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/narvanalabs/persistent-params/pkg/config"
	"github.com/narvanalabs/persistent-params/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	databaseURL string
	verbose     bool

	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "paramctl",
	Short:         "administer the persistent parameter service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := config.LoadWithDefaults().LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		log = logger.NewWithWriter(os.Stderr, level, false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres connection string (default $DATABASE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// dsn returns the connection string from the flag or the environment.
func dsn() (string, error) {
	if databaseURL != "" {
		return databaseURL, nil
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no database: pass --database-url or set DATABASE_URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
