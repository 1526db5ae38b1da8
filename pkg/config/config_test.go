package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "numeval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestEmptyPathLoadsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestEmptyFileLoadsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "evaluation:\n  digits: 50\n  maxprec_bits: 1024\n  workers: 1\n  quad_scheme: smooth\n"))
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Evaluation.Digits)
	require.Equal(t, uint(1024), cfg.Evaluation.MaxPrecBits)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestUnknownKeyRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "evaluaton:\n  digits: 50\n"))
	require.Error(t, err)
}

func TestInvalidSchemeRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "evaluation:\n  digits: 15\n  maxprec_bits: 330\n  quad_scheme: gauss\n"))
	require.Error(t, err)
}

func TestPersistRequiresPath(t *testing.T) {
	_, err := Load(writeConfig(t, "cache:\n  persist: true\n"))
	require.Error(t, err)

	cfg, err := Load(writeConfig(t, "cache:\n  persist: true\n  path: /tmp/numeval.db\n"))
	require.NoError(t, err)
	require.True(t, cfg.Cache.Persist)
}

func TestEnvOverridesLogLevel(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
}
