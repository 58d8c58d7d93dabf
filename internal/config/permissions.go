// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

const keyringPrefix = "keyring://"

// groupOrOtherRead covers the 040 and 004 permission bits.
const groupOrOtherRead fs.FileMode = 0o044

// WarnInsecurePermissions logs a warning when the config file at path holds
// a literal embedding API key and can be read by group or others. Keys kept
// in the keyring are not exposed by the file, so no warning is logged for
// them. It reports whether a warning was emitted.
func (c *Config) WarnInsecurePermissions(path string) bool {
	if path == "" || c.Embedding.APIKey == "" || strings.HasPrefix(c.Embedding.APIKey, keyringPrefix) {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return false
	}

	if info.Mode().Perm()&groupOrOtherRead == 0 {
		return false
	}

	slog.Warn("config file holding embedding.api_key is readable by other users",
		"path", path,
		"mode", info.Mode(),
		"recommended", "0600 or a keyring:// reference",
	)
	return true
}
