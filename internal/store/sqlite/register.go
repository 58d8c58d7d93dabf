// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package sqlite

import (
	"os"
	"path/filepath"

	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// DatabaseFile is the name of the plays database inside the data directory.
const DatabaseFile = "plays.db"

func init() {
	store.RegisterBackend("sqlite", newPlayStore)
}

func newPlayStore(cfg store.StorageConfig) (store.PlayStore, error) {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeStoreDatabaseFailure, "creating data dir %s", dir)
	}

	ps, err := NewPlayStore(filepath.Join(dir, DatabaseFile), cfg.VectorDimensions)
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeStoreDatabaseFailure, "creating play store")
	}
	return ps, nil
}
