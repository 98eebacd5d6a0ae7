package shape

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate("std::map<std::string, std::vector<double> >")
	require.NoError(t, err)

	assert.Equal(t, "std::map", tpl.Name)
	require.Len(t, tpl.Args, 2)
	assert.Equal(t, "std::string", tpl.Args[0].Name)
	assert.Equal(t, "std::vector", tpl.Args[1].Name)
	require.Len(t, tpl.Args[1].Args, 1)
	assert.Equal(t, "double", tpl.Args[1].Args[0].Name)
}

func TestParseTemplate_WhitespaceInsensitive(t *testing.T) {
	a, err := ParseTemplate("std::map<std::string, std::vector<double> >")
	require.NoError(t, err)
	b, err := ParseTemplate("std::map<std::string,std::vector<double>>")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "std::map<std::string, std::vector<double> >", b.String())
}

func TestParseTemplate_Scalar(t *testing.T) {
	tpl, err := ParseTemplate("boost::uuids::uuid")
	require.NoError(t, err)
	assert.Equal(t, "boost::uuids::uuid", tpl.Name)
	assert.Empty(t, tpl.Args)
}

func TestParseTemplate_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"std::vector<",
		"std::vector<int",
		"std::vector<>",
		"std::vector<int>>",
		"std::pair<int,>",
	} {
		_, err := ParseTemplate(in)
		if !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("ParseTemplate(%q): expected ErrInvalidTemplate, got %v", in, err)
		}
	}
}

func TestTemplate_EqualDistinguishesArgs(t *testing.T) {
	a, err := ParseTemplate("std::pair<int, double>")
	require.NoError(t, err)
	b, err := ParseTemplate("std::pair<int, float>")
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}
