package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a schema version label of the form vMAJOR.MINOR.
// Versions advance monotonically; later versions describe a superset of
// the types known to earlier ones.
type Version struct {
	Major int
	Minor int
}

// ParseVersion parses "v1.3" or "1.3".
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	major, minor, ok := strings.Cut(raw, ".")
	if !ok {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	maj, err := parseComponent(major)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	mnr, err := parseComponent(minor)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return Version{Major: maj, Minor: mnr}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// Intended for literals in tests and static tables.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version component")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit %q in version component", c)
		}
	}
	return strconv.Atoi(s)
}

// String returns the canonical label, e.g. "v1.3".
func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0, or +1 ordering v against other numerically.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major < other.Major:
		return -1
	case v.Major > other.Major:
		return 1
	case v.Minor < other.Minor:
		return -1
	case v.Minor > other.Minor:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// IsZero reports whether v is the zero value (no version).
func (v Version) IsZero() bool {
	return v == Version{}
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
