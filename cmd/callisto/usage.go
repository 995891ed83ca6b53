package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/usage"
)

var usageFlags struct {
	sinceHours int
	limit      int
	format     string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize recorded usage",
	Long: `Query the usage store and print a token and request summary plus the
most recent records.

Only the sqlite backend can be queried offline; the memory backend
exists solely inside a running server.

Examples:
  # Last 24 hours, text output
  callisto usage

  # Last week as JSON
  callisto usage --since-hours 168 --format json

  # Recent records as CSV
  callisto usage --limit 100 --format csv`,
	RunE: showUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().IntVar(&usageFlags.sinceHours, "since-hours", 24, "summary window in hours")
	usageCmd.Flags().IntVar(&usageFlags.limit, "limit", 20, "number of recent records to show")
	usageCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json, csv")
}

func showUsage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if cfg.Usage.Backend != "sqlite" {
		return fmt.Errorf("usage backend %q cannot be queried offline", cfg.Usage.Backend)
	}

	store, err := usage.NewSQLiteStore(&usage.SQLiteConfig{
		Path:        cfg.Usage.SQLitePath,
		BusyTimeout: cfg.Usage.BusyTimeout,
	}, nil)
	if err != nil {
		return cli.NewCommandError("usage", err)
	}
	defer store.Close()

	ctx := context.Background()
	since := time.Now().Add(-time.Duration(usageFlags.sinceHours) * time.Hour)

	summary, err := store.Summarize(ctx, since)
	if err != nil {
		return cli.NewCommandError("usage", err)
	}
	records, err := store.Recent(ctx, usageFlags.limit)
	if err != nil {
		return cli.NewCommandError("usage", err)
	}

	switch cli.OutputFormat(usageFlags.format) {
	case cli.FormatJSON:
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, map[string]interface{}{
			"window_hours": usageFlags.sinceHours,
			"summary":      summary,
			"recent":       records,
		})
	case cli.FormatCSV:
		formatter := cli.NewFormatter(cli.FormatCSV)
		return formatter.FormatTo(os.Stdout, recordTable(records))
	default:
		fmt.Printf("Usage over the last %d hours:\n", usageFlags.sinceHours)
		fmt.Printf("  Requests:          %d\n", summary.Requests)
		fmt.Printf("  Prompt tokens:     %d\n", summary.PromptTokens)
		fmt.Printf("  Completion tokens: %d\n", summary.CompletionTokens)
		fmt.Printf("  Total tokens:      %d\n", summary.TotalTokens)

		if len(records) == 0 {
			return nil
		}
		fmt.Printf("\nMost recent %d records:\n", len(records))
		formatter := cli.NewFormatter(cli.FormatText)
		return formatter.FormatTo(os.Stdout, recordTable(records))
	}
}

// recordTable renders usage records as tabular output.
func recordTable(records []*usage.Record) *cli.Table {
	table := &cli.Table{
		Headers: []string{"created_at", "dialect", "model", "status", "prompt_tokens", "completion_tokens", "duration_ms"},
	}
	for _, rec := range records {
		table.Rows = append(table.Rows, []string{
			rec.CreatedAt.Format(time.RFC3339),
			rec.Dialect,
			rec.Model,
			rec.Status,
			strconv.FormatInt(int64(rec.PromptTokens), 10),
			strconv.FormatInt(int64(rec.CompletionTokens), 10),
			strconv.FormatInt(rec.DurationMs, 10),
		})
	}
	return table
}
