package shape

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate is returned for unbalanced or empty template spellings.
var ErrInvalidTemplate = errors.New("shape: invalid template")

// Template is a parsed native type spelling such as
// "std::map<std::string, std::vector<double> >".
type Template struct {
	Name string
	Args []*Template
}

// ParseTemplate parses a native type spelling into its normal form.
// Whitespace around names and separators is not significant.
func ParseTemplate(s string) (*Template, error) {
	p := &templateParser{src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: %q has trailing input at %d", ErrInvalidTemplate, s, p.pos)
	}
	return t, nil
}

type templateParser struct {
	src string
	pos int
}

func (p *templateParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *templateParser) parse() (*Template, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' {
			break
		}
		p.pos++
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	if name == "" {
		return nil, fmt.Errorf("%w: %q missing name at %d", ErrInvalidTemplate, p.src, start)
	}

	t := &Template{Name: name}
	if p.pos >= len(p.src) || p.src[p.pos] != '<' {
		return t, nil
	}
	p.pos++ // '<'

	for {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, arg)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("%w: %q is unbalanced", ErrInvalidTemplate, p.src)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return t, nil
		default:
			return nil, fmt.Errorf("%w: %q unexpected %q at %d", ErrInvalidTemplate, p.src, p.src[p.pos], p.pos)
		}
	}
}

// Equal reports structural equality.
func (t *Template) Equal(other *Template) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Name != other.Name || len(t.Args) != len(other.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the normal form using the same spacing as Shape.Native.
func (t *Template) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return renderTemplate(t.Name, args)
}
