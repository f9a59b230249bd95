// Package config handles store bootstrapping: the store directory layout
// and the config.json written by init, which supplies the default owner
// for later lock operations.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"tcfs/internal/crypto"
	"tcfs/internal/errs"
	"tcfs/internal/policy"
)

// FileName is the store configuration artifact inside the store directory.
const FileName = "config.json"

// Config is the persisted store configuration.
type Config struct {
	Version   string `json:"version"`
	Owner     string `json:"owner"`
	KDF       string `json:"kdf"`
	CreatedAt string `json:"created_at"`
}

// DefaultStoreDir resolves the store directory: the TCFS_STORE
// environment variable when set, otherwise ~/.tcfs.
func DefaultStoreDir() (string, error) {
	if dir := os.Getenv("TCFS_STORE"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.FileAccessDenied, "cannot resolve home directory", err)
	}
	return filepath.Join(home, ".tcfs"), nil
}

// Init creates the store directory and writes a fresh config.json.
func Init(dir, owner, version string, kdf crypto.KDF) (Config, error) {
	if owner == "" {
		return Config{}, errs.New(errs.InvalidArgument, "owner cannot be empty")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Config{}, errs.Wrap(errs.FileAccessDenied, "cannot create store directory", err)
	}

	cfg := Config{
		Version:   version,
		Owner:     owner,
		KDF:       kdf.String(),
		CreatedAt: policy.FormatTime(time.Now()),
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Config{}, errs.Wrap(errs.Internal, "cannot marshal config", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o600); err != nil {
		return Config{}, errs.Wrap(errs.FileAccessDenied, "cannot write config file", err)
	}
	return cfg, nil
}

// Load reads config.json from the store directory. A missing file is
// reported as FileNotFound so callers can fall back to defaults.
func Load(dir string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errs.Wrap(errs.FileNotFound, "store config not found", err)
		}
		return Config{}, errs.Wrap(errs.FileAccessDenied, "cannot read config file", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errs.Wrap(errs.InvalidMetadata, "malformed config file", err)
	}
	return cfg, nil
}
