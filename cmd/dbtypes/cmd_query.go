package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cyclus/dbtypes/pkg/registry"
	"github.com/cyclus/dbtypes/pkg/types"
)

var listAll bool

var supportedCmd = &cobra.Command{
	Use:   "supported <id|name> <backend> <version>",
	Short: "Report whether a backend supports a type at a schema version",
	Long: `Prints true or false. Exits 0 when supported and 4 when not, so the
command can gate scripts:

  dbtypes supported VL_MAP_STRING_DOUBLE hdf5 1.3.2 && echo ok`,
	Args: cobra.ExactArgs(3),
	RunE: runSupported,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <id|name> <backend> <version>",
	Short: "Show the full record for a type",
	Args:  cobra.ExactArgs(3),
	RunE:  runLookup,
}

var listCmd = &cobra.Command{
	Use:   "list <backend> [version]",
	Short: "List the types a backend supports at a version (default: latest)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runList,
}

var rankCmd = &cobra.Command{
	Use:   "rank <id|name> <backend> <version>",
	Short: "Print the shape rank of a type",
	Args:  cobra.ExactArgs(3),
	RunE:  runRank,
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the schema versions and backends present in the table",
	Args:  cobra.NoArgs,
	RunE:  runVersions,
}

var diffCmd = &cobra.Command{
	Use:   "diff <backend> <from> <to>",
	Short: "Show how a backend's type table changed between two versions",
	Args:  cobra.ExactArgs(3),
	RunE:  runDiff,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include unsupported types")
}

func runSupported(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	key, err := parseKeyArgs(reg, args)
	if err != nil {
		return err
	}

	ok := reg.IsSupported(key.ID, key.Backend, key.Version)
	if jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), map[string]any{"key": key.String(), "supported": ok}); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), ok)
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, errUnsupported)
	}
	return nil
}

func runLookup(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	key, err := parseKeyArgs(reg, args)
	if err != nil {
		return err
	}
	rec, err := reg.Lookup(key.ID, key.Backend, key.Version)
	if err != nil {
		return err
	}
	return writeRecords(cmd.OutOrStdout(), []types.TypeRecord{rec})
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	backend, version, err := parseTableArgs(reg, args)
	if err != nil {
		return err
	}
	if listAll {
		return writeRecords(cmd.OutOrStdout(), reg.List(backend, version))
	}
	return writeRecords(cmd.OutOrStdout(), reg.ListSupported(backend, version))
}

func runRank(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	key, err := parseKeyArgs(reg, args)
	if err != nil {
		return err
	}
	rank, err := reg.ShapeRank(key.ID, key.Backend, key.Version)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"key": key.String(), "shape_rank": rank})
	}
	fmt.Fprintln(cmd.OutOrStdout(), rank)
	return nil
}

type versionSummary struct {
	Version   types.Version         `json:"version"`
	Types     int                   `json:"types"`
	Supported map[types.Backend]int `json:"supported"`
}

func runVersions(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}

	var out []versionSummary
	for _, v := range reg.Versions() {
		s := versionSummary{Version: v, Supported: make(map[types.Backend]int)}
		for _, b := range reg.Backends() {
			if n := len(reg.List(b, v)); n > s.Types {
				s.Types = n
			}
			s.Supported[b] = len(reg.ListSupported(b, v))
		}
		out = append(out, s)
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"versions":    out,
			"backends":    reg.Backends(),
			"fingerprint": reg.Fingerprint(),
		})
	}
	w := cmd.OutOrStdout()
	for _, s := range out {
		fmt.Fprintf(w, "%s  %d types", s.Version, s.Types)
		for _, b := range reg.Backends() {
			fmt.Fprintf(w, "  %s:%d", b, s.Supported[b])
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	reg, err := application.Registry(cmd.Context())
	if err != nil {
		return err
	}
	backend, from, err := parseTableArgs(reg, args[:2])
	if err != nil {
		return err
	}
	to, err := reg.ResolveVersion(args[2])
	if err != nil {
		return err
	}

	d := reg.Diff(backend, from, to)
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), d)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s -> %s\n", backend, from, to)
	printIDs(w, reg, "added", d.Added, backend, to)
	printIDs(w, reg, "removed", d.Removed, backend, from)
	printIDs(w, reg, "newly supported", d.NewlySupported, backend, to)
	printIDs(w, reg, "no longer supported", d.NoLongerSupported, backend, to)
	return nil
}

func printIDs(w io.Writer, reg *registry.Registry, label string, ids []int, backend types.Backend, v types.Version) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", label, len(ids))
	for _, id := range ids {
		rec, err := reg.Lookup(id, backend, v)
		if err != nil {
			fmt.Fprintf(w, "  %d\n", id)
			continue
		}
		fmt.Fprintf(w, "  %d %s\n", id, rec.Name)
	}
}
