// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package config

import (
	_ "embed"
	"os"
	"path/filepath"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

//go:embed playbook.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/playbook/playbook.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", pberr.Errorf(pberr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "playbook", "playbook.yaml"), nil
}

// WriteDefault writes the default commented config to path. It refuses to
// replace an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return pberr.Errorf(pberr.CodeConfigValidateInvalidValue, "config file %s already exists", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return pberr.Errorf(pberr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	return nil
}
