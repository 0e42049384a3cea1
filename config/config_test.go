package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Credentials)
	assert.Equal(t, "/", cfg.Export.GroupDelimiter)
	assert.True(t, cfg.Export.XLSForm)
	assert.False(t, cfg.Export.Flatten)
}

func TestLoadConfigFile(t *testing.T) {
	workdir := t.TempDir()

	content := `credentials: /etc/xform-sheets/credentials.json
share: exports@project.iam.gserviceaccount.com
export:
  group_delimiter: "."
  split_select_multiples: true
  flatten: true
`

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte(content), 0644))

	cfg, err := Load(workdir)
	require.NoError(t, err)

	assert.Equal(t, "/etc/xform-sheets/credentials.json", cfg.Credentials)
	assert.Equal(t, "exports@project.iam.gserviceaccount.com", cfg.Share)
	assert.Equal(t, ".", cfg.Export.GroupDelimiter)
	assert.True(t, cfg.Export.SplitSelectMultiples)
	assert.True(t, cfg.Export.Flatten)
	assert.True(t, cfg.Export.XLSForm)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("SHEETS_CREDENTIALS", "/tmp/credentials.json")
	t.Setenv("SHEETS_SHARE", "exports@project.iam.gserviceaccount.com")
	t.Setenv("SHEETS_EXPORT_GROUP_DELIMITER", ".")
	t.Setenv("SHEETS_EXPORT_FLATTEN", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/tmp/credentials.json", cfg.Credentials)
	assert.Equal(t, "exports@project.iam.gserviceaccount.com", cfg.Share)
	assert.Equal(t, ".", cfg.Export.GroupDelimiter)
	assert.True(t, cfg.Export.Flatten)
	assert.True(t, cfg.Export.XLSForm)
}

func TestEnvironmentOverridesConfigFile(t *testing.T) {
	workdir := t.TempDir()

	content := `share: configured@project.iam.gserviceaccount.com
`
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte(content), 0644))

	t.Setenv("SHEETS_SHARE", "overridden@project.iam.gserviceaccount.com")

	cfg, err := Load(workdir)
	require.NoError(t, err)

	assert.Equal(t, "overridden@project.iam.gserviceaccount.com", cfg.Share)
}

func TestLoadInvalidConfigFile(t *testing.T) {
	workdir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte(":\tnot yaml"), 0644))

	_, err := Load(workdir)
	assert.Error(t, err)
}
