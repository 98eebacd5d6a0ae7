package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/cyclus/dbtypes/internal/app"
	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/pkg/registry"
	"github.com/cyclus/dbtypes/pkg/types"
)

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
	exitLoad     = 3
	exitNo       = 4 // "supported" answered no
)

var errUnsupported = errors.New("not supported")

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUnsupported):
		return exitNo
	case errors.Is(err, registry.ErrNotFound):
		return exitNotFound
	case errors.Is(err, registry.ErrLoad):
		return exitLoad
	default:
		return exitError
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRecords(w io.Writer, recs []types.TypeRecord) error {
	if jsonOutput {
		if recs == nil {
			recs = []types.TypeRecord{}
		}
		return writeJSON(w, recs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNATIVE\tRANK\tBACKEND\tVERSION\tSUPPORTED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Name, r.NativeRepr, r.ShapeRank, r.Backend, r.Version, strconv.FormatBool(r.Supported))
	}
	return tw.Flush()
}

func writeUsage(w io.Writer, u app.Usage) error {
	if jsonOutput {
		return writeJSON(w, u)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tQUERIES\tMISSES")
	for _, ts := range u.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", ts.Table, ts.Queries, ts.Misses)
	}
	if len(u.TopMisses) > 0 {
		fmt.Fprintln(tw, "\nMISSED KEY\tCOUNT")
		for _, m := range u.TopMisses {
			fmt.Fprintf(tw, "%s\t%d\n", m.Key, m.Frequency)
		}
	}
	if c := u.Cache; c != nil {
		fmt.Fprintf(tw, "\ncache\thits=%d misses=%d stale=%d size=%dB hit_rate=%.1f%%\n",
			c.Hits, c.Misses, c.Stale, c.SizeBytes, c.HitRate)
	}
	return tw.Flush()
}

// parseKeyArgs parses "<id|name> <backend> <version>" positional arguments.
// A name is resolved through the registry; a version may be any framework
// version string.
func parseKeyArgs(reg *registry.Registry, args []string) (types.Key, error) {
	backend, err := types.ParseBackend(args[1])
	if err != nil {
		return types.Key{}, rerrors.NewValidationError(rerrors.CodeInvalidInput, err.Error())
	}
	version, err := reg.ResolveVersion(args[2])
	if err != nil {
		return types.Key{}, err
	}

	if id, err := strconv.Atoi(args[0]); err == nil {
		return types.Key{ID: id, Backend: backend, Version: version}, nil
	}
	rec, err := reg.LookupByName(args[0], backend, version)
	if err != nil {
		return types.Key{}, err
	}
	return rec.Key(), nil
}

// parseTableArgs parses "<backend> [version]"; the version defaults to the
// latest present.
func parseTableArgs(reg *registry.Registry, args []string) (types.Backend, types.Version, error) {
	backend, err := types.ParseBackend(args[0])
	if err != nil {
		return "", types.Version{}, rerrors.NewValidationError(rerrors.CodeInvalidInput, err.Error())
	}
	if len(args) < 2 {
		return backend, reg.Latest(), nil
	}
	version, err := reg.ResolveVersion(args[1])
	return backend, version, err
}
