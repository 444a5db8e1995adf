/*
Package cli provides command-line helpers shared by the rulehost commands.

Output Formatting:

Command results are printed as text or JSON. Results with a multi-line
text form implement TextRenderer:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes: 2 for configuration
errors, 1 for everything else.
*/
package cli
