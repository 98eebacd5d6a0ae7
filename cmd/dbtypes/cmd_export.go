package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cyclus/dbtypes/pkg/table"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the loaded table to a file or stdout",
	Long: `Writes the table in canonical order. The format follows the file
extension (.json, .yaml, .js, optionally followed by .sz for snappy
compression). Without a path the table is written to stdout in --format.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Format for stdout: json, yaml, js")
}

func runExport(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	tbl := table.FromRecords(reg.Records())

	if len(args) == 0 {
		data, err := table.Encode(tbl, table.Format(exportFormat))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path := args[0]
	data, err := table.EncodePath(tbl, path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("table exported",
		zap.String("path", path),
		zap.Int("records", reg.Len()),
		zap.Int("bytes", len(data)))
	return nil
}
