package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"stewardship/internal/app"
	"stewardship/internal/platform/config"
	"stewardship/internal/platform/logger"
)

var (
	appCtx   *app.App
	operator string
	now      string
	verbose  bool
)

// Execute runs the stewardctl command tree.
func Execute() error {
	root := &cobra.Command{
		Use:          "stewardctl",
		Short:        "Register numbers, statement imports and envelope batches from the shell",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logger.New(level, "text")
			appCtx, err = app.Build(cmd.Context(), cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			if appCtx.Storage == "memory" {
				log.Warn("DATABASE_URL is not set; changes will not outlive this command")
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx != nil {
				appCtx.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&operator, "by", "", "operator recorded against the change")
	root.PersistentFlags().StringVar(&now, "today", "", "override today's date (YYYY-MM-DD)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(migrateCmd(), numbersCmd(), importCmd(), batchCmd(), totalCmd(), membersCmd())
	return root.Execute()
}

// today resolves the calendar date used for the current-year rule.
func today() (time.Time, error) {
	if now == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func requireOperator() error {
	if operator == "" {
		return fmt.Errorf("--by is required")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
