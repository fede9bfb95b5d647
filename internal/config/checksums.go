package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// ChecksumFileName is the manifest written next to a locked config file.
const ChecksumFileName = ".checksums"

// ChecksumManifest records the BLAKE3 hash of locked config files, keyed by
// base name.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// ComputeBlake3Hash computes the BLAKE3 hash of a file.
func ComputeBlake3Hash(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// LockConfig hashes configPath into the .checksums manifest beside it, so
// later loads refuse a modified file.
func LockConfig(configPath string) (*ChecksumManifest, error) {
	absPath, err := resolvePath(configPath)
	if err != nil {
		return nil, err
	}

	hash, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", absPath, err)
	}

	dir := filepath.Dir(absPath)
	manifest, err := LoadChecksums(dir)
	if err != nil {
		manifest = &ChecksumManifest{Version: 1, Hashes: make(map[string]string)}
	}
	manifest.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	manifest.Hashes[filepath.Base(absPath)] = hash

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checksums: %w", err)
	}

	// Write with restrictive permissions (contains expected hashes)
	if err := os.WriteFile(filepath.Join(dir, ChecksumFileName), data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write checksums: %w", err)
	}

	return manifest, nil
}

// LoadChecksums reads the .checksums manifest from a config directory.
func LoadChecksums(configDir string) (*ChecksumManifest, error) {
	data, err := os.ReadFile(filepath.Join(configDir, ChecksumFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("checksums file not found (run 'mercury config lock')")
		}
		return nil, fmt.Errorf("failed to read checksums: %w", err)
	}

	var manifest ChecksumManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse checksums: %w", err)
	}

	if manifest.Version != 1 {
		return nil, fmt.Errorf("unsupported checksums version: %d", manifest.Version)
	}
	if manifest.Hashes == nil {
		manifest.Hashes = make(map[string]string)
	}

	return &manifest, nil
}

// VerifyChecksums checks an absolute config path against the manifest in its
// directory. Without a manifest there is nothing to verify; with one, the
// file must be listed and match.
func VerifyChecksums(absPath string) error {
	dir := filepath.Dir(absPath)
	if _, err := os.Stat(filepath.Join(dir, ChecksumFileName)); os.IsNotExist(err) {
		return nil
	}

	manifest, err := LoadChecksums(dir)
	if err != nil {
		return err
	}

	base := filepath.Base(absPath)
	expected, ok := manifest.Hashes[base]
	if !ok {
		return fmt.Errorf("config file %s has no hash in checksums at %s\n"+
			"Run: mercury config lock --config %s", base, dir, absPath)
	}

	actual, err := ComputeBlake3Hash(absPath)
	if err != nil {
		return fmt.Errorf("failed to compute hash: %w", err)
	}
	if actual != expected {
		return fmt.Errorf("config verification failed for %s: hash mismatch\n"+
			"This indicates tampering or unauthorized modification.\n"+
			"If you edited this file intentionally, run: mercury config lock --config %s", absPath, absPath)
	}

	return nil
}
