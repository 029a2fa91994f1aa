package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/raehik/loot-api/pkg/metadata"
)

const masterlistYAML = `bash_tags:
  - Delev
  - Relev
globals:
  - type: say
    content: 'Masterlist note.'
plugins:
  - name: Foo.esp
    after: [ 'Bar.esp' ]
    tag: [ Delev ]
    dirty:
      - crc: 0x12345678
        util: 'TES5Edit'
        itm: 3
  - name: Plain.esp
    msg:
      - type: warn
        content: 'Check the load order.'
`

const userlistYAML = `plugins:
  - name: Foo.esp
    tag: [ -Relev, C.Water ]
`

// runCLI executes the root command in-process with the given input on
// stdin, returning everything written to stdout.
func runCLI(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeLists lays out a masterlist, a userlist and an empty config
// directory under a temp dir.
func writeLists(t *testing.T) (configDir, master, user string) {
	t.Helper()
	dir := t.TempDir()
	configDir = filepath.Join(dir, "config")
	require.NoError(t, os.Mkdir(configDir, 0o755))
	master = filepath.Join(dir, "masterlist.yaml")
	user = filepath.Join(dir, "userlist.yaml")
	require.NoError(t, os.WriteFile(master, []byte(masterlistYAML), 0o644))
	require.NoError(t, os.WriteFile(user, []byte(userlistYAML), 0o644))
	return configDir, master, user
}

func listArgs(configDir, master, user string, extra ...string) []string {
	args := []string{"--config-dir", configDir, "--masterlist", master, "--userlist", user}
	return append(extra, args...)
}

func TestTags(t *testing.T) {
	configDir, master, user := writeLists(t)

	out, err := runCLI(t, "", listArgs(configDir, master, user, "tags")...)
	require.NoError(t, err)
	assert.Equal(t, "C.Water\nDelev\nRelev\n", out)

	out, err = runCLI(t, "", listArgs(configDir, master, user, "tags", "--json")...)
	require.NoError(t, err)
	var tags []string
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	assert.Equal(t, []string{"C.Water", "Delev", "Relev"}, tags)
}

func TestMessages(t *testing.T) {
	configDir, master, user := writeLists(t)

	out, err := runCLI(t, "", listArgs(configDir, master, user, "messages")...)
	require.NoError(t, err)
	assert.Equal(t, "say: Masterlist note.\n", out)
}

func TestPlugin(t *testing.T) {
	configDir, master, user := writeLists(t)

	decode := func(t *testing.T, out string) metadata.PluginMetadata {
		t.Helper()
		var md metadata.PluginMetadata
		require.NoError(t, yaml.Unmarshal([]byte(out), &md))
		return md
	}
	tagNames := func(md metadata.PluginMetadata) []string {
		var names []string
		for _, tag := range md.Tags {
			names = append(names, tag.Name)
		}
		return names
	}

	t.Run("merges userlist by default", func(t *testing.T) {
		out, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp")...)
		require.NoError(t, err)
		md := decode(t, out)
		assert.Equal(t, "Foo.esp", md.Name)
		assert.Equal(t, []string{"Bar.esp"}, fileNames(md.After))
		assert.ElementsMatch(t, []string{"Delev", "Relev", "C.Water"}, tagNames(md))
	})

	t.Run("no-user keeps the masterlist view", func(t *testing.T) {
		out, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp", "--no-user")...)
		require.NoError(t, err)
		assert.Equal(t, []string{"Delev"}, tagNames(decode(t, out)))
	})

	t.Run("user-only ignores the masterlist", func(t *testing.T) {
		out, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp", "--user-only")...)
		require.NoError(t, err)
		md := decode(t, out)
		assert.ElementsMatch(t, []string{"Relev", "C.Water"}, tagNames(md))
		assert.Empty(t, md.After)
	})

	t.Run("unknown plugin", func(t *testing.T) {
		out, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Ghost.esp")...)
		require.NoError(t, err)
		assert.Equal(t, "No metadata for Ghost.esp.\n", out)
	})

	t.Run("json output", func(t *testing.T) {
		out, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp", "--json")...)
		require.NoError(t, err)
		var got struct {
			Name string `json:"name"`
			Tags []struct {
				Name string `json:"name"`
				Add  bool   `json:"add"`
			} `json:"tag"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "Foo.esp", got.Name)
		assert.NotEmpty(t, got.Tags)
	})

	t.Run("conflicting flags", func(t *testing.T) {
		_, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp", "--no-user", "--user-only")...)
		require.ErrorIs(t, err, metadata.ErrInvalidArgument)
	})

	t.Run("eval needs a game directory", func(t *testing.T) {
		_, err := runCLI(t, "", listArgs(configDir, master, user, "plugin", "Foo.esp", "--eval")...)
		require.ErrorIs(t, err, metadata.ErrInvalidArgument)
	})
}

func fileNames(files []metadata.File) []string {
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}

func TestSet(t *testing.T) {
	t.Run("from stdin", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		doc := "name: New.esp\nafter: [ 'Foo.esp' ]\n"

		out, err := runCLI(t, doc, listArgs(configDir, master, user, "set")...)
		require.NoError(t, err)
		assert.Contains(t, out, "New.esp")

		saved := metadata.NewList()
		require.NoError(t, saved.Load(user))
		md, err := saved.FindPlugin("New.esp")
		require.NoError(t, err)
		assert.Equal(t, []string{"Foo.esp"}, fileNames(md.After))
	})

	t.Run("from file", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		docPath := filepath.Join(t.TempDir(), "entry.yaml")
		require.NoError(t, os.WriteFile(docPath, []byte("name: Foo.esp\ntag: [ Relev ]\n"), 0o644))

		_, err := runCLI(t, "", listArgs(configDir, master, user, "set", "foo.esp", "--file", docPath)...)
		require.NoError(t, err)

		saved := metadata.NewList()
		require.NoError(t, saved.Load(user))
		md, err := saved.FindPlugin("Foo.esp")
		require.NoError(t, err)
		require.Len(t, md.Tags, 1)
		assert.Equal(t, "Relev", md.Tags[0].Name)
	})

	t.Run("name mismatch", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		_, err := runCLI(t, "name: Foo.esp\n", listArgs(configDir, master, user, "set", "Other.esp")...)
		require.ErrorIs(t, err, metadata.ErrInvalidArgument)
	})

	t.Run("malformed document", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		_, err := runCLI(t, "tag: [: nope", listArgs(configDir, master, user, "set")...)
		require.ErrorIs(t, err, metadata.ErrMalformed)
	})
}

func TestDiscard(t *testing.T) {
	t.Run("single entry", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		_, err := runCLI(t, "", listArgs(configDir, master, user, "discard", "Foo.esp")...)
		require.NoError(t, err)

		saved := metadata.NewList()
		require.NoError(t, saved.Load(user))
		md, err := saved.FindPlugin("Foo.esp")
		require.NoError(t, err)
		assert.True(t, md.HasNameOnly())
	})

	t.Run("all entries", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		_, err := runCLI(t, "", listArgs(configDir, master, user, "discard", "--all")...)
		require.NoError(t, err)

		saved := metadata.NewList()
		require.NoError(t, saved.Load(user))
		assert.Empty(t, saved.Plugins())
	})

	t.Run("needs a name or --all", func(t *testing.T) {
		configDir, master, user := writeLists(t)
		_, err := runCLI(t, "", listArgs(configDir, master, user, "discard")...)
		require.ErrorIs(t, err, metadata.ErrInvalidArgument)

		_, err = runCLI(t, "", listArgs(configDir, master, user, "discard", "Foo.esp", "--all")...)
		require.ErrorIs(t, err, metadata.ErrInvalidArgument)
	})
}

func TestExport(t *testing.T) {
	configDir, master, user := writeLists(t)
	out := filepath.Join(t.TempDir(), "export.yaml")

	_, err := runCLI(t, "", listArgs(configDir, master, user, "export", "--out", out)...)
	require.NoError(t, err)

	saved := metadata.NewList()
	require.NoError(t, saved.Load(out))
	md, err := saved.FindPlugin("Foo.esp")
	require.NoError(t, err)
	assert.False(t, md.HasNameOnly())

	_, err = runCLI(t, "", listArgs(configDir, master, user, "export", "--out", out)...)
	require.ErrorIs(t, err, metadata.ErrFileAccess)

	_, err = runCLI(t, "", listArgs(configDir, master, user, "export", "--out", out, "--force")...)
	require.NoError(t, err)
}

func TestMinimal(t *testing.T) {
	configDir, master, user := writeLists(t)
	out := filepath.Join(t.TempDir(), "minimal.yaml")

	_, err := runCLI(t, "", listArgs(configDir, master, user, "minimal", "--out", out)...)
	require.NoError(t, err)

	saved := metadata.NewList()
	require.NoError(t, saved.Load(out))
	plugins := saved.Plugins()
	require.Len(t, plugins, 1)
	assert.Equal(t, "Foo.esp", plugins[0].Name)
	assert.Empty(t, plugins[0].Messages)
}

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	out, err := runCLI(t, "", "init", "--config-dir", configDir)
	require.NoError(t, err)
	assert.Contains(t, out, "written to")

	data, err := os.ReadFile(filepath.Join(configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "game: tes5")

	out, err = runCLI(t, "", "init", "--config-dir", configDir)
	require.NoError(t, err)
	assert.Contains(t, out, "already present")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lootdb v")
	assert.Contains(t, out, modulePath)
}

func TestConfigPrecedence(t *testing.T) {
	configDir, master, user := writeLists(t)
	config := fmt.Sprintf("masterlist: %s\n", master)
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(config), 0o644))
	t.Setenv("LOOTDB_USERLIST", user)

	// Masterlist from the config file, userlist from the environment.
	out, err := runCLI(t, "", "tags", "--config-dir", configDir)
	require.NoError(t, err)
	assert.Equal(t, "C.Water\nDelev\nRelev\n", out)
}

func TestMalformedConfig(t *testing.T) {
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("game: [: nope"), 0o644))

	_, err := runCLI(t, "", "tags", "--config-dir", configDir)
	require.ErrorIs(t, err, metadata.ErrMalformed)
}

func TestMissingMasterlist(t *testing.T) {
	configDir := t.TempDir()
	_, err := runCLI(t, "", "tags", "--config-dir", configDir, "--masterlist", filepath.Join(configDir, "nope.yaml"))
	require.ErrorIs(t, err, metadata.ErrFileAccess)
}

func TestUpdateAndRevision(t *testing.T) {
	configDir := t.TempDir()
	master := filepath.Join(t.TempDir(), "masterlist.yaml")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		fmt.Fprint(w, masterlistYAML)
	}))
	defer srv.Close()

	out, err := runCLI(t, "", "update", "--config-dir", configDir, "--masterlist", master, "--url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Masterlist updated.\n", out)
	require.FileExists(t, master)

	out, err = runCLI(t, "", "update", "--config-dir", configDir, "--masterlist", master, "--url", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Masterlist already up to date.\n", out)

	out, err = runCLI(t, "", "revision", "--config-dir", configDir, "--masterlist", master, "--short")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "revision: "), out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Len(t, strings.TrimPrefix(lines[0], "revision: "), 7)
	assert.Equal(t, "modified: false", lines[2])

	out, err = runCLI(t, "", "update", "--config-dir", configDir, "--masterlist", master, "--url", srv.URL, "--json")
	require.NoError(t, err)
	var status struct {
		Changed bool `json:"changed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.Changed)
}

func TestUpdateNeedsURL(t *testing.T) {
	configDir := t.TempDir()
	_, err := runCLI(t, "", "update", "--config-dir", configDir, "--masterlist", filepath.Join(configDir, "m.yaml"))
	require.ErrorIs(t, err, metadata.ErrInvalidArgument)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(metadata.ErrInvalidArgument))
	assert.Equal(t, exitUserError, exitCode(metadata.ErrNotFound))
	assert.Equal(t, exitUserError, exitCode(fmt.Errorf("unknown flag")))
	assert.Equal(t, exitSysError, exitCode(metadata.ErrFileAccess))
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("loading: %w", metadata.ErrMalformed)))
}
