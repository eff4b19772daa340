package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"commune/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8545", cfg.RPCAddress)
	require.Equal(t, "commune-local", cfg.NetworkName)
	require.Equal(t, 50, cfg.RPCRateLimit)
	require.Equal(t, 100, cfg.RPCRateBurst)
	require.Equal(t, 256, cfg.RequestBodyLimitKB)
	require.True(t, cfg.MetricsEnabled)
	require.NotEmpty(t, cfg.ProgramAddress)

	// Config and operator keystore both land on disk.
	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(cfg.OperatorKeystore)
	require.NoError(t, err)

	key, err := crypto.LoadFromKeystore(cfg.OperatorKeystore, "")
	require.NoError(t, err)
	require.Equal(t, cfg.ProgramAddress, key.Address().String())
}

func TestLoadExistingAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
RPCAddress = ":9000"
DataDir = "./data"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.RPCAddress)
	require.Equal(t, "commune-local", cfg.NetworkName)
	require.Equal(t, 50, cfg.RPCRateLimit)
	require.Equal(t, 100, cfg.LogMaxSizeMB)
	require.Equal(t, filepath.Join(dir, "operator.keystore"), cfg.OperatorKeystore)
}

func TestLoadRejectsBadAddresses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
ProgramAddress = "not a base58 address"
`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := Load(path)
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first.ProgramAddress, second.ProgramAddress)
	require.Equal(t, first.OperatorKeystore, second.OperatorKeystore)
}
