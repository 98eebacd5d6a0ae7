package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"
)

// Format is a table encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	// FormatJS is the generated documentation artifact:
	//   var dbdata = '[[...],' + '[...]]';
	FormatJS Format = "js"
)

// compressedSuffix marks a snappy-compressed payload.
const compressedSuffix = ".sz"

// FormatFromPath infers the format from a file name and reports whether the
// payload is snappy-compressed ("dbtypes.json.sz").
func FormatFromPath(path string) (Format, bool, error) {
	compressed := false
	if strings.HasSuffix(path, compressedSuffix) {
		compressed = true
		path = strings.TrimSuffix(path, compressedSuffix)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".js":
		return FormatJS, compressed, nil
	default:
		return "", false, fmt.Errorf("table: unsupported table file format: %s", path)
	}
}

// Decode parses a table payload.
func Decode(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		var matrix [][]any
		if err := yaml.Unmarshal(data, &matrix); err != nil {
			return nil, fmt.Errorf("table: failed to parse YAML table: %w", err)
		}
		return fromMatrix(matrix)
	case FormatJS:
		literal, err := extractJSLiteral(data)
		if err != nil {
			return nil, err
		}
		return decodeJSON([]byte(literal))
	default:
		return nil, fmt.Errorf("table: unsupported format %q", format)
	}
}

// DecodePath decodes a payload whose format and compression are inferred
// from path.
func DecodePath(data []byte, path string) (*Table, error) {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if compressed {
		if data, err = Decompress(data); err != nil {
			return nil, err
		}
	}
	return Decode(data, format)
}

func decodeJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var matrix [][]any
	if err := dec.Decode(&matrix); err != nil {
		return nil, fmt.Errorf("table: failed to parse JSON table: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("table: unexpected data after JSON table")
	}
	return fromMatrix(matrix)
}

// extractJSLiteral concatenates the single-quoted string literals of the
// first JavaScript statement in data.
func extractJSLiteral(data []byte) (string, error) {
	src := string(data)
	eq := strings.IndexByte(src, '=')
	if eq < 0 {
		return "", fmt.Errorf("table: no assignment in JS table")
	}

	var out strings.Builder
	inQuote := false
	for i := eq + 1; i < len(src); i++ {
		c := src[i]
		if inQuote {
			switch c {
			case '\\':
				if i+1 < len(src) {
					i++
					out.WriteByte(src[i])
				}
			case '\'':
				inQuote = false
			default:
				out.WriteByte(c)
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case ';':
			return out.String(), nil
		}
	}
	if inQuote {
		return "", fmt.Errorf("table: unterminated string literal in JS table")
	}
	return out.String(), nil
}

// Encode renders a table in the given format.
func Encode(t *Table, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return encodeJSON(t)
	case FormatYAML:
		data, err := yaml.Marshal(t.matrix())
		if err != nil {
			return nil, fmt.Errorf("table: failed to marshal YAML table: %w", err)
		}
		return data, nil
	case FormatJS:
		return encodeJS(t)
	default:
		return nil, fmt.Errorf("table: unsupported format %q", format)
	}
}

// EncodePath renders a table in the format implied by path, compressing
// when the path ends in .sz.
func EncodePath(t *Table, path string) ([]byte, error) {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := Encode(t, format)
	if err != nil {
		return nil, err
	}
	if compressed {
		return Compress(data), nil
	}
	return data, nil
}

// encodeJSON writes one row per line so diffs of the table stay readable.
func encodeJSON(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, row := range t.matrix() {
		line, err := marshalRow(row)
		if err != nil {
			return nil, fmt.Errorf("table: failed to marshal row %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteString(",\n")
		}
		buf.Write(line)
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

func encodeJS(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("var dbdata =\n")
	m := t.matrix()
	for i, row := range m {
		line, err := marshalRow(row)
		if err != nil {
			return nil, fmt.Errorf("table: failed to marshal row %d: %w", i, err)
		}
		frag := strings.ReplaceAll(string(line), `\`, `\\`)
		frag = strings.ReplaceAll(frag, `'`, `\'`)
		prefix, suffix := "", ","
		if i == 0 {
			prefix = "["
		}
		if i == len(m)-1 {
			suffix = "]"
		}
		fmt.Fprintf(&buf, "    '%s%s%s'", prefix, frag, suffix)
		if i == len(m)-1 {
			buf.WriteString(";\n")
		} else {
			buf.WriteString(" +\n")
		}
	}
	return buf.Bytes(), nil
}

// marshalRow encodes a row without HTML escaping so native spellings such as
// std::vector<int> stay legible.
func marshalRow(row []any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(row); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Compress snappy-encodes a payload.
func Compress(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("table: failed to decompress table: %w", err)
	}
	return raw, nil
}
