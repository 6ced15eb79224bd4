package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/rominator/internal/config"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/sources/gdrive"
	"github.com/tanq16/rominator/internal/utils"
)

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	cfg, err := config.Load(path, KnownIDs)
	require.NoError(t, err)
	return cfg
}

func ids(srcs []sources.Source) []string {
	var out []string
	for _, s := range srcs {
		out = append(out, s.ID())
	}
	return out
}

func TestBuildDefaultsToRomspedia(t *testing.T) {
	cfg := loadConfig(t, "enabled_sources: [romspedia]\n")
	c := Build(t.Context(), cfg, utils.NewRomHTTPClient(utils.HTTPClientConfig{}))
	assert.Equal(t, []string{"romspedia"}, ids(c.Sources))
	assert.Nil(t, c.S3)
	assert.Empty(t, c.Skipped)
}

func TestBuildConfiguredSources(t *testing.T) {
	dir := t.TempDir()
	awsConfig := filepath.Join(dir, "aws-config")
	require.NoError(t, os.WriteFile(awsConfig, []byte("[default]\nregion = us-east-1\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aws-credentials"), nil, 0600))
	t.Setenv("AWS_CONFIG_FILE", awsConfig)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "aws-credentials"))
	t.Setenv("AWS_PROFILE", "")

	cfg := loadConfig(t, `
enabled_sources: [romspedia, feed, git]
sources:
  feeds: {gba: [https://example.com/gba.xml]}
  s3: {bucket: mirror}
  git: {url: https://github.com/acme/homebrew}
  gdrive: {api_key: AIzaKey, folders: {nes: abc}}
`)
	c := Build(t.Context(), cfg, utils.NewRomHTTPClient(utils.HTTPClientConfig{}))
	assert.Equal(t, []string{"romspedia", "feed", "s3", "git", "gdrive"}, ids(c.Sources))
	assert.NotNil(t, c.S3)

	reg := c.Registry(cfg.EnabledSources)
	assert.Equal(t, []string{"romspedia", "feed", "git"}, reg.Enabled())
}

func TestBuildSkipsGDriveWithoutToken(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://a","token_uri":"https://t"}}`), 0600))
	cfg := loadConfig(t, "sources:\n  gdrive: {credentials: "+creds+", folders: {gba: x}}\n")

	c := Build(t.Context(), cfg, utils.NewRomHTTPClient(utils.HTTPClientConfig{}))
	assert.Equal(t, []string{"romspedia"}, ids(c.Sources))
	assert.ErrorIs(t, c.Skipped["gdrive"], gdrive.ErrNoToken)
	assert.Equal(t, filepath.Join(filepath.Dir(cfg.Path()), gdriveTokenFile), GDriveTokenPath(cfg))
}
