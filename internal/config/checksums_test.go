package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockConfig_LoadVerifies(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "slack:\n  token: t\n")

	manifest, err := LockConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, manifest.Version)
	assert.Len(t, manifest.Hashes[DefaultFileName], 64)

	info, err := os.Stat(filepath.Join(filepath.Dir(path), ChecksumFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("slack:\n  token: stolen\n"), 0600))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")

	_, err = LockConfig(path)
	require.NoError(t, err)
	_, err = Load(path)
	assert.NoError(t, err)
}

func TestVerifyChecksums_NoManifest(t *testing.T) {
	path := writeConfig(t, "slack:\n  token: t\n")
	assert.NoError(t, VerifyChecksums(path))
}

func TestVerifyChecksums_UnlistedFile(t *testing.T) {
	path := writeConfig(t, "slack:\n  token: t\n")
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChecksumFileName), []byte("version: 1\nhashes: {}\n"), 0600))

	err := VerifyChecksums(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no hash in checksums")
}

func TestLoadChecksums_UnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChecksumFileName), []byte("version: 2\n"), 0600))

	_, err := LoadChecksums(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported checksums version")
}

func TestComputeBlake3Hash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("mercury"), 0600))

	h1, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	h2, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	_, err = ComputeBlake3Hash(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
