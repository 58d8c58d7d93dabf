// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/playbook-dev/playbook/internal/store"
	"github.com/playbook-dev/playbook/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and returns cleanup func.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "playbook-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// newTestStore opens a 3-dimensional play store that is closed on cleanup.
func newTestStore(t *testing.T, name string) *sqlite.PlayStore {
	t.Helper()
	ps, err := sqlite.NewPlayStore(testDBPath(t, name), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func strPtr(s string) *string { return &s }

func newPlay(mapName, agent, desc string, vec ...float32) *store.Play {
	return &store.Play{
		PlaybookID:      "pb-1",
		Map:             mapName,
		Agent:           agent,
		PlayDescription: desc,
		Embedding:       vec,
	}
}
