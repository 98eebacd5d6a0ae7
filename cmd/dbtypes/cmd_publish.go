package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cyclus/dbtypes/pkg/table"
)

var publishListOnly bool

var publishCmd = &cobra.Command{
	Use:   "publish [object-path]",
	Short: "Upload the loaded table to object storage",
	Long: `Encodes the loaded table by the object path's extension and uploads it to
the configured storage (local directory or S3). The object path defaults to
source.object_path from the configuration. With --list, prints the objects
under the given prefix instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishListOnly, "list", false, "List published objects under the prefix")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := application.Storage(ctx)
	if err != nil {
		return err
	}

	objectPath := application.Config().Source.ObjectPath
	if len(args) == 1 {
		objectPath = args[0]
	}

	if publishListOnly {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		objects, err := store.ListObjects(ctx, prefix)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), objects)
		}
		for _, o := range objects {
			fmt.Fprintln(cmd.OutOrStdout(), o)
		}
		return nil
	}

	reg, err := application.Registry(ctx)
	if err != nil {
		return err
	}
	data, err := table.EncodePath(table.FromRecords(reg.Records()), objectPath)
	if err != nil {
		return err
	}
	etag, err := store.Put(ctx, objectPath, data)
	if err != nil {
		return err
	}

	logger.Info("table published",
		zap.String("object", objectPath),
		zap.String("etag", etag),
		zap.String("fingerprint", reg.Fingerprint()))
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"object":      objectPath,
			"etag":        etag,
			"fingerprint": reg.Fingerprint(),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", objectPath, etag)
	return nil
}
