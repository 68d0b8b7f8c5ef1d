package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(CredentialEnv, "")
	t.Setenv("AUTOLYSIS_API_TOKEN", "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, "gpt-4o-mini", c.Model)
	assert.Equal(t, 30, c.HTTPTimeoutSec)
	assert.Equal(t, 1, c.RetryMaxAttempts)
	assert.Equal(t, 20, c.MaxCategories)
	assert.Equal(t, 3, c.ClusterK)
	assert.Equal(t, int64(42), c.ClusterSeed)
	assert.False(t, c.Boxplots)
	assert.Empty(t, c.APIToken)
}

func TestLoadCredentialFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv(CredentialEnv, "proxy-token")
	c, err := Load("")
	require.NoError(t, err)
	tok, err := c.Credential("openai")
	require.NoError(t, err)
	assert.Equal(t, "proxy-token", tok)
}

func TestCredentialMissing(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	_, err = c.Credential("openai")
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, CredentialEnv, cfgErr.Key)
	assert.True(t, errors.Is(err, ErrCredentialMissing))

	tok, err := c.Credential("ollama")
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestSaveAndLoadFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	c := &Global{Provider: "ollama", Model: "llama3.1:8b", ClusterK: 4, HTTPTimeoutSec: 10}
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", got.Provider)
	assert.Equal(t, "llama3.1:8b", got.Model)
	assert.Equal(t, 4, got.ClusterK)
	assert.Equal(t, 10, got.HTTPTimeoutSec)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveDefaultLocation(t *testing.T) {
	home := isolate(t)
	require.NoError(t, Save(&Global{Model: "gpt-4o"}, ""))
	_, err := os.Stat(filepath.Join(home, ".autolysis", "config.yaml"))
	require.NoError(t, err)
	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestSet(t *testing.T) {
	var c Global
	require.NoError(t, c.Set("cluster_k", "5"))
	require.NoError(t, c.Set("boxplots", "true"))
	require.NoError(t, c.Set("temperature", "0.2"))
	assert.Equal(t, 5, c.ClusterK)
	assert.True(t, c.Boxplots)
	assert.InDelta(t, 0.2, c.Temperature, 1e-12)

	var cfgErr *Error
	assert.ErrorAs(t, c.Set("cluster_k", "three"), &cfgErr)
	assert.ErrorAs(t, c.Set("nope", "1"), &cfgErr)
	assert.Error(t, c.Set("log_format", "xml"))
}

func TestRedacted(t *testing.T) {
	c := Global{APIToken: "secret"}
	assert.Equal(t, "****", c.Redacted().APIToken)
	assert.Equal(t, "secret", c.APIToken)
}
