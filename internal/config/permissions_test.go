// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

//go:build !windows

package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestWarnInsecurePermissions(t *testing.T) {
	tests := []struct {
		name     string
		perm     os.FileMode
		apiKey   string
		wantWarn bool
	}{
		{"owner only", 0o600, "sk-literal", false},
		{"read only owner", 0o400, "sk-literal", false},
		{"group readable", 0o640, "sk-literal", true},
		{"other readable", 0o604, "sk-literal", true},
		{"world readable", 0o644, "sk-literal", true},
		{"keyring reference", 0o644, "keyring://playbook/embedding-api-key", false},
		{"no key", 0o644, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "playbook.yaml")
			require.NoError(t, os.WriteFile(path, []byte("embedding:\n  api_key: x\n"), 0o600))
			require.NoError(t, os.Chmod(path, tt.perm))

			buf := captureLogs(t)
			cfg := &Config{Embedding: EmbeddingConfig{APIKey: tt.apiKey}}

			assert.Equal(t, tt.wantWarn, cfg.WarnInsecurePermissions(path))
			if tt.wantWarn {
				assert.Contains(t, buf.String(), "readable by other users")
				assert.Contains(t, buf.String(), path)
			} else {
				assert.NotContains(t, buf.String(), "level=WARN")
			}
		})
	}
}

func TestWarnInsecurePermissions_EmptyPath(t *testing.T) {
	buf := captureLogs(t)
	cfg := &Config{Embedding: EmbeddingConfig{APIKey: "sk-literal"}}

	assert.False(t, cfg.WarnInsecurePermissions(""))
	assert.Empty(t, buf.String())
}

func TestWarnInsecurePermissions_MissingFile(t *testing.T) {
	buf := captureLogs(t)
	cfg := &Config{Embedding: EmbeddingConfig{APIKey: "sk-literal"}}

	assert.False(t, cfg.WarnInsecurePermissions("/nonexistent/path/playbook.yaml"))
	assert.Contains(t, buf.String(), "could not stat")
}
