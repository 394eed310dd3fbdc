package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/assetreg/pkg/catalog"
	"github.com/ssargent/assetreg/pkg/config"
	"github.com/ssargent/assetreg/pkg/di"
	"github.com/ssargent/assetreg/pkg/registry"
)

type cliEnv struct {
	dir        string
	configPath string
	catalogDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		catalogDir: filepath.Join(dir, "catalog"),
	}
}

// run executes the CLI with a fresh container and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	SetContainer(di.NewContainer())
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", e.configPath, "--catalog-dir", e.catalogDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *cliEnv) writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.dir, "sample.bin")
	_, err := e.run(t, "sample", path)
	require.NoError(t, err)
	return path
}

func TestSampleAndInspect(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeSample(t)

	out, err := env.run(t, "inspect", "-o", "json", path)
	require.NoError(t, err)

	var reports []FileReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, path, reports[0].File)
	require.NotNil(t, reports[0].Summary)
	assert.Equal(t, 11, reports[0].Summary.Names)
	assert.Equal(t, "AddedHeader", reports[0].Summary.Version)
	assert.Equal(t, "e79e7f71-3a49-b0e9-3291-b3880781381b", reports[0].Summary.UUID)
	assert.Empty(t, reports[0].Problems)

	out, err = env.run(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "717F9EE7-E9B0493A-88B39132-1B388107 (e79e7f71-3a49-b0e9-3291-b3880781381b)")
	assert.Contains(t, out, "AddedHeader (16)")
}

func TestInspect_ReportsEveryFile(t *testing.T) {
	env := newCLIEnv(t)
	good := env.writeSample(t)
	raw, err := os.ReadFile(good)
	require.NoError(t, err)
	bad := filepath.Join(env.dir, "bad.bin")
	require.NoError(t, os.WriteFile(bad, raw[:30], 0644))

	out, err := env.run(t, "inspect", "-o", "yaml", good, bad, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 files failed")

	var reports []FileReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	assert.Empty(t, reports[0].Error)
	assert.Equal(t, "truncated", reports[1].Kind)
	assert.Equal(t, bad, reports[1].File)
	assert.Empty(t, reports[2].Error)
}

func TestInspect_CBOROutput(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeSample(t)

	out, err := env.run(t, "inspect", "-o", "cbor", path)
	require.NoError(t, err)

	var reports []FileReport
	require.NoError(t, cbor.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Summary.Assets)
}

func TestNamesAndPairs(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeSample(t)

	out, err := env.run(t, "names", path)
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "Größe")
	assert.Contains(t, out, "/Game/Props")

	out, err = env.run(t, "pairs", "-o", "json", path)
	require.NoError(t, err)
	var pairs []registry.ResolvedPair
	require.NoError(t, json.Unmarshal([]byte(out), &pairs))
	require.Len(t, pairs, 3)
	assert.Equal(t, "Map", pairs[0].Value)
	assert.Equal(t, "pointer", pairs[1].Kind)
}

func TestRoundtrip(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeSample(t)

	out, err := env.run(t, "roundtrip", path)
	require.NoError(t, err)
	assert.Contains(t, out, "identical")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	bad := filepath.Join(env.dir, "bad.bin")
	require.NoError(t, os.WriteFile(bad, raw[:len(raw)-3], 0644))

	_, err = env.run(t, "roundtrip", path, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files did not round-trip")
}

func TestFirstMismatch(t *testing.T) {
	assert.Equal(t, -1, firstMismatch([]byte{1, 2}, []byte{1, 2}))
	assert.Equal(t, 1, firstMismatch([]byte{1, 2}, []byte{1, 3}))
	assert.Equal(t, 2, firstMismatch([]byte{1, 2}, []byte{1, 2, 3}))
	assert.Equal(t, 0, firstMismatch(nil, []byte{1}))
}

func TestVersions(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "versions", "-o", "json", "ClassPaths")
	require.NoError(t, err)
	var infos []VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(14), infos[0].Ordinal)
	assert.Contains(t, infos[0].AssetFields, "asset_class_path")
	assert.NotContains(t, infos[0].AssetFields, "asset_class")

	out, err = env.run(t, "versions")
	require.NoError(t, err)
	assert.Contains(t, out, "PreVersioning")
	assert.Contains(t, out, "AddedHeader")

	_, err = env.run(t, "versions", "Bogus")
	assert.Error(t, err)
}

func TestCatalogCommands(t *testing.T) {
	env := newCLIEnv(t)
	path := env.writeSample(t)

	out, err := env.run(t, "catalog", "add", "-o", "json", "--name", "arena", path)
	require.NoError(t, err)
	var added []catalog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	require.Len(t, added, 1)
	id := added[0].ID
	assert.Equal(t, "arena", added[0].Name)

	out, err = env.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "arena")

	out, err = env.run(t, "catalog", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "blake3:"+added[0].Digest)

	out, err = env.run(t, "catalog", "show", "--section", "pairs", id)
	require.NoError(t, err)
	assert.Contains(t, out, "PrimaryAssetType")

	exported := filepath.Join(env.dir, "exported.bin")
	_, err = env.run(t, "catalog", "export", id, exported)
	require.NoError(t, err)
	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = env.run(t, "catalog", "rm", id)
	require.NoError(t, err)

	out, err = env.run(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No registries found")

	_, err = env.run(t, "catalog", "show", id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestConfigInit(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration")
	require.True(t, config.ConfigExists(env.configPath))

	cfg, err := config.LoadConfig(env.configPath)
	require.NoError(t, err)
	assert.Equal(t, env.catalogDir, cfg.CatalogDir)
	assert.NotEqual(t, "auto", cfg.Security.APIKey)

	_, err = env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, cfg.Security.APIKey)
}

func TestConfigFileAndFlagOverrides(t *testing.T) {
	env := newCLIEnv(t)
	cfg := config.DefaultConfig()
	cfg.Output.Format = "json"
	require.NoError(t, config.SaveConfig(cfg, env.configPath))

	out, err := env.run(t, "versions", "FixedTags")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), out)

	out, err = env.run(t, "versions", "-o", "table", "FixedTags")
	require.NoError(t, err)
	assert.Contains(t, out, "ORDINAL")
}

func TestInvalidConfiguration(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "versions", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestServeRequiresAPIKey(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key configured")
}
