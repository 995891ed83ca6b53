/*
Package cli provides command-line interface utilities for Callisto.

The cli package includes output formatters, typed command errors, and
signal handling helpers used by the callisto command.

Output Formatting:

Command results can be rendered as text, JSON, or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

CSV output works on tabular data:

	table := &cli.Table{
		Headers: []string{"model", "requests"},
		Rows:    [][]string{{"sonnet", "42"}},
	}
	formatter := cli.NewFormatter(cli.FormatCSV)
	err := formatter.FormatTo(os.Stdout, table)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
