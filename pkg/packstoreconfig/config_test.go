package packstoreconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/packstore/pkg/packstore"
	"github.com/calvinalkan/packstore/pkg/packstoreconfig"
)

func Test_LoadOptions_UsesProjectConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	configBody := `{
		// trailing comment, since this is JSONC
		"path": "blobs.pack",
		"strategy": "check_count",
		"fill_rate": 0.5,
	}`

	require.NoError(t, os.WriteFile(filepath.Join(dir, packstoreconfig.ConfigFileName), []byte(configBody), 0o644))

	opts, sources, err := packstoreconfig.LoadOptions(dir, "", packstore.Options{}, false, nil)
	require.NoError(t, err)

	require.Equal(t, "blobs.pack", opts.Path)
	require.Equal(t, packstore.CheckCount, opts.Strategy)
	require.InDelta(t, 0.5, opts.FillRate, 0.0001)
	require.Equal(t, filepath.Join(dir, packstoreconfig.ConfigFileName), sources.Project)
}

func Test_LoadOptions_MissingProjectConfig_UsesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	opts, _, err := packstoreconfig.LoadOptions(dir, "", packstore.Options{Path: "override.pack"}, true, nil)
	require.NoError(t, err)

	require.Equal(t, "override.pack", opts.Path)
	require.Equal(t, packstore.Never, opts.Strategy)
}

func Test_LoadOptions_CLIOverrideWinsOverProjectConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	configBody := `{"path": "from-file.pack"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, packstoreconfig.ConfigFileName), []byte(configBody), 0o644))

	opts, _, err := packstoreconfig.LoadOptions(dir, "", packstore.Options{Path: "from-cli.pack"}, true, nil)
	require.NoError(t, err)

	require.Equal(t, "from-cli.pack", opts.Path)
}

func Test_LoadOptions_ExplicitConfigPath_MustExist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := packstoreconfig.LoadOptions(dir, "does-not-exist.json", packstore.Options{}, false, nil)
	require.Error(t, err)
}

func Test_LoadOptions_RejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	configBody := `{"path": "blobs.pack", "strategy": "bogus"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, packstoreconfig.ConfigFileName), []byte(configBody), 0o644))

	_, _, err := packstoreconfig.LoadOptions(dir, "", packstore.Options{}, false, nil)
	require.Error(t, err)
}

func Test_LoadOptions_EmptyPathAfterLayering_FailsValidation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := packstoreconfig.LoadOptions(dir, "", packstore.Options{}, false, nil)
	require.Error(t, err)
}
