package registry

import (
	"fmt"
	"sort"

	"github.com/cyclus/dbtypes/pkg/shape"
	"github.com/cyclus/dbtypes/pkg/types"
)

// FindingKind classifies a lint finding.
type FindingKind string

const (
	FindingUnparsableName   FindingKind = "unparsable-name"
	FindingRankMismatch     FindingKind = "rank-mismatch"
	FindingNativeMismatch   FindingKind = "native-mismatch"
	FindingUnparsableNative FindingKind = "unparsable-native"
)

// Finding is a non-fatal disagreement between a record's declared fields
// and what its canonical name implies.
type Finding struct {
	Name    string
	Version types.Version
	Kind    FindingKind
	Detail  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s: %s", f.Version, f.Name, f.Kind, f.Detail)
}

// Lint checks every record of reg against its parsed name. Findings are
// reported once per version and name, whatever the number of backends.
func Lint(reg *Registry) []Finding {
	return lintRecords(reg.records)
}

func lintRecords(recs []types.TypeRecord) []Finding {
	type seenKey struct {
		version types.Version
		name    string
		kind    FindingKind
	}
	seen := make(map[seenKey]bool)
	var findings []Finding
	add := func(r types.TypeRecord, kind FindingKind, detail string) {
		k := seenKey{r.Version, r.Name, kind}
		if seen[k] {
			return
		}
		seen[k] = true
		findings = append(findings, Finding{Name: r.Name, Version: r.Version, Kind: kind, Detail: detail})
	}

	for _, r := range recs {
		s, err := shape.ParseName(r.Name)
		if err != nil {
			add(r, FindingUnparsableName, err.Error())
			continue
		}
		if want := s.Rank(); want != r.ShapeRank {
			add(r, FindingRankMismatch, fmt.Sprintf("declared rank %d, name implies %d", r.ShapeRank, want))
		}
		declared, err := shape.ParseTemplate(r.NativeRepr)
		if err != nil {
			add(r, FindingUnparsableNative, err.Error())
			continue
		}
		if !declared.Equal(s.Template()) {
			add(r, FindingNativeMismatch, fmt.Sprintf("declared %q, name implies %q", r.NativeRepr, s.Native()))
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Version != b.Version {
			return a.Version.Less(b.Version)
		}
		return a.Name < b.Name
	})
	return findings
}
