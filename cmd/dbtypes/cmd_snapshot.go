package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyclus/dbtypes/pkg/types"
)

var snapshotID string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage registry snapshots in the SQLite catalog",
}

var snapshotWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Store the loaded table as a snapshot (no-op if unchanged)",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotWrite,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

var snapshotMatrixCmd = &cobra.Command{
	Use:   "matrix <version>",
	Short: "Print per-backend support for every type at a version",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotMatrix,
}

func init() {
	snapshotMatrixCmd.Flags().StringVar(&snapshotID, "id", "", "Snapshot id (default: latest)")
	snapshotCmd.AddCommand(snapshotWriteCmd, snapshotListCmd, snapshotMatrixCmd)
}

func runSnapshotWrite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg, err := application.Registry(ctx)
	if err != nil {
		return err
	}
	src, err := application.Source(ctx)
	if err != nil {
		return err
	}
	c, err := application.Catalog()
	if err != nil {
		return err
	}

	info, err := c.WriteSnapshot(ctx, reg.Records(), reg.Fingerprint(), src.Name())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), info)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d records\n", info.SnapshotID, info.Fingerprint, info.RecordCount)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	c, err := application.Catalog()
	if err != nil {
		return err
	}
	list, err := c.ListSnapshots(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), list)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFINGERPRINT\tRECORDS\tSOURCE\tCREATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.SnapshotID, s.Fingerprint, s.RecordCount, s.Source, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func runSnapshotMatrix(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	version, err := types.ParseVersion(args[0])
	if err != nil {
		return err
	}
	c, err := application.Catalog()
	if err != nil {
		return err
	}

	id := snapshotID
	if id == "" {
		latest, err := c.LatestSnapshot(ctx)
		if err != nil {
			return err
		}
		id = latest.SnapshotID
	}

	matrix, err := c.SupportMatrix(ctx, id, version)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), matrix)
	}

	backendSet := make(map[types.Backend]bool)
	for _, row := range matrix {
		for b := range row.Supported {
			backendSet[b] = true
		}
	}
	backends := make([]types.Backend, 0, len(backendSet))
	for b := range backendSet {
		backends = append(backends, b)
	}
	sort.Slice(backends, func(i, j int) bool { return backends[i] < backends[j] })

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "ID\tNAME")
	for _, b := range backends {
		fmt.Fprintf(tw, "\t%s", b)
	}
	fmt.Fprintln(tw)
	for _, row := range matrix {
		fmt.Fprintf(tw, "%d\t%s", row.ID, row.Name)
		for _, b := range backends {
			mark := "-"
			if row.Supported[b] {
				mark = "yes"
			} else if _, ok := row.Supported[b]; ok {
				mark = "no"
			}
			fmt.Fprintf(tw, "\t%s", mark)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
