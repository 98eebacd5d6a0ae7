package registry

import (
	"encoding/json"
	"fmt"
	"math"

	rerrors "github.com/cyclus/dbtypes/internal/errors"
	"github.com/cyclus/dbtypes/pkg/table"
	"github.com/cyclus/dbtypes/pkg/types"
)

// decodeTable converts every data row of t into a TypeRecord. Row numbers
// in errors count the header as row 0.
func decodeTable(t *table.Table) ([]types.TypeRecord, error) {
	cols, err := t.Columns()
	if err != nil {
		return nil, rerrors.WrapLoadError(rerrors.CodeMalformedRow, "invalid header", err)
	}

	recs := make([]types.TypeRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		rowNum := i + 1
		if len(row) != len(t.Header) {
			return nil, rerrors.NewLoadError(rerrors.CodeMalformedRow,
				fmt.Sprintf("row %d has %d fields, want %d", rowNum, len(row), len(t.Header))).
				WithDetails(map[string]interface{}{"row": rowNum})
		}
		rec, err := decodeRow(row, cols)
		if err != nil {
			return nil, rerrors.WrapLoadError(rerrors.CodeInvalidField,
				fmt.Sprintf("row %d", rowNum), err).
				WithDetails(map[string]interface{}{"row": rowNum})
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeRow(row []any, cols map[string]int) (types.TypeRecord, error) {
	var rec types.TypeRecord
	var err error

	if rec.ID, err = asInt(row[cols[table.ColID]]); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColID, err)
	}
	if rec.Name, err = asString(row[cols[table.ColName]]); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColName, err)
	}
	if rec.NativeRepr, err = asString(row[cols[table.ColNative]]); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColNative, err)
	}
	if rec.ShapeRank, err = asInt(row[cols[table.ColShapeRank]]); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColShapeRank, err)
	}

	backend, err := asString(row[cols[table.ColBackend]])
	if err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColBackend, err)
	}
	if rec.Backend, err = types.ParseBackend(backend); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColBackend, err)
	}

	version, err := asString(row[cols[table.ColVersion]])
	if err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColVersion, err)
	}
	if rec.Version, err = types.ParseVersion(version); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColVersion, err)
	}

	if rec.Supported, err = asBool(row[cols[table.ColSupported]]); err != nil {
		return rec, fmt.Errorf("%s: %w", table.ColSupported, err)
	}

	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}

func asInt(v any) (int, error) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", x.String())
		}
		n = i
	case int:
		n = int64(x)
	case int64:
		n = x
	case uint64:
		if x > math.MaxInt32 {
			return 0, fmt.Errorf("%d out of range", x)
		}
		n = int64(x)
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		if x > math.MaxInt32 || x < math.MinInt32 {
			return 0, fmt.Errorf("%v out of range", x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return int(n), nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

// asBool accepts a boolean or the table's 0/1 encoding.
func asBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	n, err := asInt(v)
	if err != nil {
		return false, fmt.Errorf("expected 0, 1 or boolean, got %T", v)
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("expected 0 or 1, got %d", n)
	}
}
