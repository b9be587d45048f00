/*
Package cli provides command-line utilities for the carta command: output
formatters, an import progress reporter, exit-code mapping, and signal
handling.

Output Formatting:

Command results such as verification reports render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

Bulk imports report progress with a records/s rate:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(totalRecords)
	for i := 0; i < totalRecords; i++ {
		// Import one record
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Exit Codes:

ExitCode maps errors to the binary's exit codes so scripts can tell
configuration mistakes (ExitConfig) from storage-level failures such as
ExitNotFound or ExitConflict.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
