// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/steambot/envfile"
	"github.com/bvk/steambot/server"
)

// EnvFileName is the env file with the secrets overrides, searched in the
// data directory and the user's home directory.
const EnvFileName = ".steambot.env"

type DataFlags struct {
	dataDir     string
	secretsPath string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory (default ~/.steambot)")
	fset.StringVar(&f.secretsPath, "secrets-file", "", "path to credentials file (default secrets.json in the data directory)")
}

// DataDir returns the absolute path to the data directory, creating it if
// necessary.
func (f *DataFlags) DataDir() (string, error) {
	dir := f.dataDir
	if len(dir) == 0 {
		dir = filepath.Join(os.Getenv("HOME"), ".steambot")
	}
	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", dir, err)
		}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", dir, err)
	}
	return abs, nil
}

func (f *DataFlags) SecretsPath() (string, error) {
	if len(f.secretsPath) != 0 {
		return f.secretsPath, nil
	}
	dir, err := f.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets.json"), nil
}

// LoadSecrets reads the secrets file and fills the missing fields from the
// env file and the environment. A missing secrets file is not an error when
// the environment provides the secrets.
func (f *DataFlags) LoadSecrets() (*server.Secrets, error) {
	dataDir, err := f.DataDir()
	if err != nil {
		return nil, err
	}
	home, _ := os.UserHomeDir()
	dirs := []string{dataDir}
	if len(home) != 0 {
		dirs = append(dirs, home)
	}
	if err := envfile.UpdateEnv(EnvFileName, envfile.SearchDirs(dirs...)); err != nil {
		return nil, fmt.Errorf("could not load env file: %w", err)
	}

	fpath, err := f.SecretsPath()
	if err != nil {
		return nil, err
	}
	secrets, err := server.SecretsFromFile(fpath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		secrets = new(server.Secrets)
	}
	secrets.ApplyEnv()
	return secrets, nil
}
