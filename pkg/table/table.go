// Package table provides the flat definition-table form of the type registry:
// a header row naming the columns followed by one tuple per type record.
package table

import (
	"fmt"

	"github.com/cyclus/dbtypes/pkg/types"
)

// Column names of the definition table.
const (
	ColID        = "id"
	ColName      = "name"
	ColNative    = "C++ type"
	ColShapeRank = "shape rank"
	ColBackend   = "backend"
	ColVersion   = "version"
	ColSupported = "supported"
)

// DefaultHeader is the column order written by this package.
var DefaultHeader = []string{ColID, ColName, ColNative, ColShapeRank, ColBackend, ColVersion, ColSupported}

// Table is a decoded definition table. Row values keep the scalar kinds of
// the source encoding (json.Number, int, string, bool) and are interpreted by
// the registry loader.
type Table struct {
	Header []string
	Rows   [][]any
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Columns maps each header name to its position.
func (t *Table) Columns() (map[string]int, error) {
	cols := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", name)
		}
		cols[name] = i
	}
	for _, required := range DefaultHeader {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("table: missing column %q", required)
		}
	}
	return cols, nil
}

// FromRecords builds a table in DefaultHeader order.
func FromRecords(recs []types.TypeRecord) *Table {
	t := &Table{
		Header: append([]string(nil), DefaultHeader...),
		Rows:   make([][]any, 0, len(recs)),
	}
	for _, r := range recs {
		supported := 0
		if r.Supported {
			supported = 1
		}
		t.Rows = append(t.Rows, []any{
			r.ID,
			r.Name,
			r.NativeRepr,
			r.ShapeRank,
			r.Backend.String(),
			r.Version.String(),
			supported,
		})
	}
	return t
}

// fromMatrix splits a decoded list of rows into header and data.
func fromMatrix(matrix [][]any) (*Table, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("table: no header row")
	}
	header := make([]string, len(matrix[0]))
	for i, v := range matrix[0] {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("table: header column %d is %T, not a string", i, v)
		}
		header[i] = s
	}
	return &Table{Header: header, Rows: matrix[1:]}, nil
}

func (t *Table) matrix() [][]any {
	m := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	m = append(m, header)
	return append(m, t.Rows...)
}
