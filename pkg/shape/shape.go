// Package shape parses canonical type names into container shapes.
//
// A canonical name is a prefix-notation spelling of a type's structure:
// VL_MAP_STRING_VL_VECTOR_DOUBLE is a variable-length map from a fixed-length
// string to a variable-length vector of doubles. The VL_ prefix marks a
// variable-length encoding and may only precede STRING or a container other
// than PAIR.
package shape

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned when a name does not follow the grammar.
var ErrInvalidName = errors.New("shape: invalid type name")

// Kind is the structural kind of a shape node.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	Double
	String
	Blob
	UUID
	Vector
	Set
	List
	Map
	Pair
)

var kindTokens = map[string]Kind{
	"BOOL":   Bool,
	"INT":    Int,
	"FLOAT":  Float,
	"DOUBLE": Double,
	"STRING": String,
	"BLOB":   Blob,
	"UUID":   UUID,
	"VECTOR": Vector,
	"SET":    Set,
	"LIST":   List,
	"MAP":    Map,
	"PAIR":   Pair,
}

var kindNames = [...]string{"BOOL", "INT", "FLOAT", "DOUBLE", "STRING", "BLOB", "UUID", "VECTOR", "SET", "LIST", "MAP", "PAIR"}

var nativeScalars = map[Kind]string{
	Bool:   "bool",
	Int:    "int",
	Float:  "float",
	Double: "double",
	String: "std::string",
	Blob:   "cyclus::Blob",
	UUID:   "boost::uuids::uuid",
}

var nativeContainers = map[Kind]string{
	Vector: "std::vector",
	Set:    "std::set",
	List:   "std::list",
	Map:    "std::map",
	Pair:   "std::pair",
}

// String returns the name token for the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Arity is the number of type arguments the kind takes.
func (k Kind) Arity() int {
	switch k {
	case Vector, Set, List:
		return 1
	case Map, Pair:
		return 2
	default:
		return 0
	}
}

// Shape is a parsed type structure.
type Shape struct {
	Kind           Kind
	VariableLength bool
	Args           []*Shape
}

// ParseName parses a canonical type name.
func ParseName(name string) (*Shape, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidName)
	}
	p := &nameParser{name: name, tokens: strings.Split(name, "_")}
	s, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("%w: %q has trailing tokens %v", ErrInvalidName, name, p.tokens[p.pos:])
	}
	return s, nil
}

type nameParser struct {
	name   string
	tokens []string
	pos    int
}

func (p *nameParser) next() (string, bool) {
	if p.pos >= len(p.tokens) {
		return "", false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

func (p *nameParser) parse() (*Shape, error) {
	tok, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("%w: %q ends early", ErrInvalidName, p.name)
	}

	vl := false
	if tok == "VL" {
		vl = true
		if tok, ok = p.next(); !ok {
			return nil, fmt.Errorf("%w: %q ends after VL", ErrInvalidName, p.name)
		}
	}

	kind, ok := kindTokens[tok]
	if !ok {
		return nil, fmt.Errorf("%w: %q has unknown token %q", ErrInvalidName, p.name, tok)
	}
	if vl && !kind.variableLengthAllowed() {
		return nil, fmt.Errorf("%w: %q applies VL to %s", ErrInvalidName, p.name, kind)
	}

	s := &Shape{Kind: kind, VariableLength: vl}
	for i := 0; i < kind.Arity(); i++ {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		s.Args = append(s.Args, arg)
	}
	return s, nil
}

func (k Kind) variableLengthAllowed() bool {
	switch k {
	case String, Vector, Set, List, Map:
		return true
	default:
		return false
	}
}

// Name renders the canonical name.
func (s *Shape) Name() string {
	var b strings.Builder
	s.writeName(&b)
	return b.String()
}

func (s *Shape) writeName(b *strings.Builder) {
	if s.VariableLength {
		b.WriteString("VL_")
	}
	b.WriteString(s.Kind.String())
	for _, a := range s.Args {
		b.WriteByte('_')
		a.writeName(b)
	}
}

// Rank returns the shape rank: every variable-size dimension (strings and
// all containers except pair) contributes one.
func (s *Shape) Rank() int {
	rank := 0
	switch s.Kind {
	case String, Vector, Set, List, Map:
		rank = 1
	}
	for _, a := range s.Args {
		rank += a.Rank()
	}
	return rank
}

// Depth returns the container nesting depth (0 for scalars).
func (s *Shape) Depth() int {
	if len(s.Args) == 0 {
		return 0
	}
	deepest := 0
	for _, a := range s.Args {
		if d := a.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Native returns the host-language spelling of the shape. Nested template
// closers are separated by a space ("std::vector<double> >").
func (s *Shape) Native() string {
	if scalar, ok := nativeScalars[s.Kind]; ok {
		return scalar
	}
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.Native()
	}
	return renderTemplate(nativeContainers[s.Kind], args)
}

// Template returns the shape's native form as a parsed template.
func (s *Shape) Template() *Template {
	if scalar, ok := nativeScalars[s.Kind]; ok {
		return &Template{Name: scalar}
	}
	t := &Template{Name: nativeContainers[s.Kind]}
	for _, a := range s.Args {
		t.Args = append(t.Args, a.Template())
	}
	return t
}

// Fixed returns a copy with every VL_ marker removed.
func (s *Shape) Fixed() *Shape {
	c := &Shape{Kind: s.Kind}
	for _, a := range s.Args {
		c.Args = append(c.Args, a.Fixed())
	}
	return c
}

func renderTemplate(name string, args []string) string {
	inner := strings.Join(args, ", ")
	if strings.HasSuffix(inner, ">") {
		return name + "<" + inner + " >"
	}
	return name + "<" + inner + ">"
}
