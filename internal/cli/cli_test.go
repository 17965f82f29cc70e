package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `[
  {"id": "twentysixteen", "name": "Twenty Sixteen", "author": "the WordPress team", "stylesheet": "pub/twentysixteen",
   "taxonomies": {"theme_color": [{"name": "Blue", "slug": "blue"}]}},
  {"id": "dara", "name": "Dara", "author": "Automattic", "stylesheet": "premium/dara",
   "taxonomies": {"theme_color": [{"name": "Blue", "slug": "blue"}], "theme_feature": [{"name": "Slider", "slug": "slider"}]}},
  {"id": "edin", "name": "Edin", "author": "Automattic", "stylesheet": "pub/edin"},
  {"id": "karuna", "name": "Karuna", "author": "Automattic", "stylesheet": "pub/karuna"},
  {"id": "radcliffe", "name": "Radcliffe", "author": "Anders Noren", "stylesheet": "pub/radcliffe"}
]`

// setup writes a source file and a config pointing every path into a temp dir.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	source := filepath.Join(dir, "themes.json")
	require.NoError(t, os.WriteFile(source, []byte(fixture), 0644))

	configPath := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`source:
  file: %s
  site: test.blog
cache:
  dir: %s
logging:
  file: %s
`, source, filepath.Join(dir, "cache"), filepath.Join(dir, "qcache.log"))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))
	return configPath
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestKeyCommand(t *testing.T) {
	configPath := setup(t)

	out, err := run(t, configPath, "key", "--search", "blue", "--page", "3")
	require.NoError(t, err)
	assert.Equal(t, `[["filters",""],["search","blue"],["tier",""]]`+"\n", out)

	again, err := run(t, configPath, "key", "--search", "blue", "--page", "1", "--per-page", "5")
	require.NoError(t, err)
	assert.Equal(t, out, again, "pages of one query share a key")
}

func TestSyncListRemoveClear(t *testing.T) {
	configPath := setup(t)

	out, err := run(t, configPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "not cached")

	out, err = run(t, configPath, "sync", "--all", "--per-page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "synced 5 themes in 3 page(s)")

	out, err = run(t, configPath, "sync", "--all", "--per-page", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "cache is fresh")

	out, err = run(t, configPath, "list", "--page", "2", "--per-page", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "edin")
	assert.Contains(t, lines[1], "karuna")
	assert.Contains(t, lines[2], "page 2 of 3, 5 themes")

	out, err = run(t, configPath, "--format", "json", "list", "--all")
	require.NoError(t, err)
	var listed listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 5, listed.Found)
	assert.Len(t, listed.Items, 5)

	out, err = run(t, configPath, "list", "--match", "--search", "blue")
	require.NoError(t, err)
	assert.Contains(t, out, "2 cached themes match")

	out, err = run(t, configPath, "remove", "dara")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 cached theme(s)")

	out, err = run(t, configPath, "list", "--all")
	require.NoError(t, err)
	assert.NotContains(t, out, "Dara")
	assert.Contains(t, out, "4 of 4 themes cached")

	out, err = run(t, configPath, "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cache cleared")

	out, err = run(t, configPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "not cached")
}

func TestSuggestCommand(t *testing.T) {
	configPath := setup(t)

	out, err := run(t, configPath, "suggest", "dara")
	require.NoError(t, err)
	assert.Contains(t, out, "no cached theme")

	_, err = run(t, configPath, "sync")
	require.NoError(t, err)

	out, err = run(t, configPath, "--format", "json", "suggest", "radclife")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"Radcliffe"}, names)

	out, err = run(t, configPath, "suggest", "karun")
	require.NoError(t, err)
	assert.Contains(t, out, "Karuna")
}

func TestRemoveUnknownIsQuiet(t *testing.T) {
	configPath := setup(t)

	out, err := run(t, configPath, "remove", "nope")
	require.NoError(t, err, "ids the source does not know are treated as already gone")
	assert.Contains(t, out, "removed 0 cached theme(s)")
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, setup(t), "--format", "xml", "key")
	assert.ErrorContains(t, err, "invalid format")
}

func TestMissingSource(t *testing.T) {
	configPath := setup(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(configPath), "themes.json")))

	_, err := run(t, configPath, "list")
	assert.ErrorContains(t, err, "failed to open source")
}
