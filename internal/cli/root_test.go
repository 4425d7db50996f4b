package cli

import (
	"bytes"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out, errBuf := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errBuf.String(), err
}

func lines(s string) []string { return strings.Split(strings.TrimRight(s, "\n"), "\n") }

func TestGenerateV4(t *testing.T) {
	out, diag, err := run(t, "-v", "4", "-l", "24", "-s", "3", "--seed", "1")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	lo, hi := netip.MustParseAddr("255.255.255.0"), netip.MustParseAddr("255.255.255.255")
	for _, l := range got {
		a, err := netip.ParseAddr(l)
		require.NoError(t, err)
		assert.True(t, a.Compare(lo) >= 0 && a.Compare(hi) <= 0, l)
	}
	assert.Contains(t, diag, "version = 4\nsize = 3\nlength = 24")
	assert.Contains(t, diag, "255.255.255.0 - 255.255.255.255")
	assert.NotContains(t, out, "Generating")
}

func TestGenerateV6(t *testing.T) {
	out, diag, err := run(t, "--version", "6", "--length", "8", "--size", "2")
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 2)
	for _, l := range got {
		assert.Len(t, l, 39)
		assert.True(t, strings.HasPrefix(l, "ff"), l)
	}
	assert.Contains(t, diag, "ff00:0000:0000:0000:0000:0000:0000:0000 - ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")
}

func TestGenerateSeeded(t *testing.T) {
	a, _, err := run(t, "-v", "6", "-l", "40", "-s", "5", "--seed", "9", "--mode", "uniform")
	require.NoError(t, err)
	b, _, err := run(t, "-v", "6", "-l", "40", "-s", "5", "--seed", "9", "--mode", "uniform")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	c, _, err := run(t, "-v", "6", "-l", "40", "-s", "5", "--seed", "9")
	require.NoError(t, err)
	assert.Len(t, lines(c), 5)
}

func TestGenerateJSON(t *testing.T) {
	out, _, err := run(t, "-l", "16", "-s", "4", "-o", "json")
	require.NoError(t, err)
	var list []string
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 4)
	for _, s := range list {
		assert.True(t, strings.HasPrefix(s, "255.255."), s)
	}
}

func TestGenerateYAML(t *testing.T) {
	out, _, err := run(t, "-l", "32", "-s", "2", "-o", "yaml")
	require.NoError(t, err)
	var list []string
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	assert.Equal(t, []string{"255.255.255.255", "255.255.255.255"}, list)
}

func TestGenerateQuiet(t *testing.T) {
	out, diag, err := run(t, "-l", "8", "-s", "1", "-q")
	require.NoError(t, err)
	assert.Empty(t, diag)
	assert.Len(t, lines(out), 1)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 6\nlength: 16\nsize: 3\nseed: 5\n"), 0o600))

	out, diag, err := run(t, "--config", path)
	require.NoError(t, err)
	got := lines(out)
	require.Len(t, got, 3)
	for _, l := range got {
		assert.True(t, strings.HasPrefix(l, "ffff:"), l)
	}
	assert.Contains(t, diag, "version = 6")

	out, _, err = run(t, "--config", path, "-s", "1")
	require.NoError(t, err)
	assert.Len(t, lines(out), 1)
}

func TestConfigFileUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 4\nmask: 3\n"), 0o600))
	_, _, err := run(t, "--config", path, "-l", "4", "-s", "1")
	require.ErrorIs(t, err, errConfiguration)
}

func TestConfigurationErrors(t *testing.T) {
	cases := map[string][]string{
		"bad version":      {"-v", "5", "-l", "8", "-s", "1"},
		"missing size":     {"-l", "8"},
		"missing length":   {"-s", "8"},
		"v4 length":        {"-l", "33", "-s", "1"},
		"v6 length":        {"-v", "6", "-l", "129", "-s", "1"},
		"negative length":  {"-l", "-1", "-s", "1"},
		"zero size":        {"-l", "8", "-s", "0"},
		"bad mode":         {"-l", "8", "-s", "1", "--mode", "gaussian"},
		"bad output":       {"-l", "8", "-s", "1", "-o", "xml"},
		"missing config":   {"--config", "/nonexistent/gen.yaml", "-l", "8", "-s", "1"},
		"positional input": {"-l", "8", "-s", "1", "extra"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			out, _, err := run(t, args...)
			require.Error(t, err)
			assert.Empty(t, out)
			if name != "positional input" {
				assert.ErrorIs(t, err, errConfiguration)
			}
		})
	}
}

func TestRangeCommand(t *testing.T) {
	out, _, err := run(t, "range", "-l", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "low: 255.255.255.0")
	assert.Contains(t, out, "high: 255.255.255.255")
	assert.Contains(t, out, "span: 255")
	assert.Contains(t, out, "255.255.255.0/24")
}

func TestRangeCommandJSON(t *testing.T) {
	out, _, err := run(t, "range", "-v", "6", "-l", "8", "-o", "json")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "IPv6", res["family"])
	assert.Equal(t, "ff00:0000:0000:0000:0000:0000:0000:0000", res["low"])
	assert.Equal(t, []any{"ff00::/8"}, res["cidrs"])
}

func TestRangeCommandMissingLength(t *testing.T) {
	_, _, err := run(t, "range")
	require.ErrorIs(t, err, errConfiguration)
}
