package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"carta-hq/titan/pkg/cli"
	"carta-hq/titan/pkg/config"
	"carta-hq/titan/pkg/service"
	"carta-hq/titan/pkg/store"
)

var importFlags struct {
	resourceType string
	file         string
	idField      string
	batchSize    int
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import resources from a file",
	Long: `Bulk import newline-delimited JSON resources into the store.

Each line of the input file is one resource payload. The record id is read
from the configured id field; lines without one get a generated id.
Records whose id already holds a live resource are skipped, never
overwritten.

Examples:
  # Import patients
  carta import --type Patient --file patients.ndjson

  # Use a custom id field
  carta import --type Observation --file obs.ndjson --id-field identifier`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFlags.resourceType, "type", "t", "", "resource type (required)")
	importCmd.Flags().StringVarP(&importFlags.file, "file", "f", "", "input file, newline-delimited JSON (required)")
	importCmd.Flags().StringVar(&importFlags.idField, "id-field", "id", "JSON field holding the record id")
	importCmd.Flags().IntVar(&importFlags.batchSize, "batch-size", 500, "records submitted per batch")
	_ = importCmd.MarkFlagRequired("type")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	st, err := store.Open(store.Config{
		Path:                 cfg.Storage.Path,
		BusyTimeout:          cfg.Storage.BusyTimeout,
		CheckpointInterval:   cfg.Storage.CheckpointInterval,
		CompressionThreshold: cfg.Compression.Threshold,
	})
	if err != nil {
		return cli.NewCommandError("import", fmt.Errorf("failed to open store: %w", err))
	}
	defer st.Close()

	svc := service.New(st, nil, nil, nil, service.Config{
		InteractiveWorkers: cfg.Pools.Interactive.Workers,
		InteractiveQueue:   cfg.Pools.Interactive.QueueSize,
		HistoryWorkers:     cfg.Pools.History.Workers,
		HistoryQueue:       cfg.Pools.History.QueueSize,
		BulkWorkers:        cfg.Pools.Bulk.Workers,
		BulkQueue:          cfg.Pools.Bulk.QueueSize,
	})

	ctx := cli.SetupSignalHandler()
	if err := svc.Start(ctx); err != nil {
		return cli.NewCommandError("import", err)
	}
	defer svc.Stop(30 * time.Second)

	items, err := readImportFile(importFlags.file, importFlags.idField)
	if err != nil {
		return cli.NewCommandError("import", err)
	}
	if len(items) == 0 {
		fmt.Println("No records to import.")
		return nil
	}

	fmt.Printf("Importing %d records into %s\n", len(items), importFlags.resourceType)

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(int64(len(items)))

	var total service.ImportReport
	for start := 0; start < len(items); start += importFlags.batchSize {
		end := start + importFlags.batchSize
		if end > len(items) {
			end = len(items)
		}

		report, err := svc.BulkImport(ctx, importFlags.resourceType, items[start:end])
		if err != nil {
			progress.Error(err)
			return cli.NewCommandError("import", err)
		}
		total.Created += report.Created
		total.Skipped += report.Skipped
		total.Failed += report.Failed
		progress.Update(int64(end))
	}
	progress.Finish()

	fmt.Println()
	fmt.Printf("✓ Created: %d\n", total.Created)
	if total.Skipped > 0 {
		fmt.Printf("  Skipped (already exist): %d\n", total.Skipped)
	}
	if total.Failed > 0 {
		fmt.Printf("✗ Failed: %d\n", total.Failed)
		return fmt.Errorf("%d records failed to import", total.Failed)
	}
	return nil
}

func readImportFile(path, idField string) ([]service.ImportItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var items []service.ImportItem
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if len(text) == 0 {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", line, err)
		}

		var id string
		if raw, ok := fields[idField]; ok {
			_ = json.Unmarshal(raw, &id)
		}
		items = append(items, service.ImportItem{RecordID: id, Payload: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return items, nil
}
