// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/zalando/go-keyring"
)

// indexKey is the entry, stored under each service, holding the JSON list of
// key names. go-keyring cannot enumerate entries, so List reads this index.
const indexKey = "::keys-index"

// KeyringStore implements Store using the OS keyring via zalando/go-keyring
// (Keychain on macOS, secret-service on Linux, Credential Manager on Windows).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

var _ Store = (*KeyringStore)(nil)

func checkRef(op, service, key string) error {
	if service == "" {
		return pberr.Errorf(pberr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return pberr.Errorf(pberr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	if key == indexKey {
		return pberr.Errorf(pberr.CodeSecretInvalidInput, "secret %s: key %q is reserved", op, key)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkRef("store", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return pberr.Wrapf(err, pberr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkRef("retrieve", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", pberr.Errorf(pberr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", pberr.Wrapf(err, pberr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return pberr.Errorf(pberr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return pberr.Wrapf(err, pberr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

// List returns the key names stored under service, sorted.
func (s *KeyringStore) List(service string) ([]string, error) {
	if service == "" {
		return nil, pberr.New(pberr.CodeSecretInvalidInput, "secret list: service must not be empty")
	}
	keys, err := s.loadIndex(service)
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeSecretListFailure, "loading key index for service %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeSecretListFailure, "decoding key index for service %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return pberr.Wrapf(err, pberr.CodeSecretListFailure, "encoding key index for service %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return pberr.Wrapf(err, pberr.CodeSecretListFailure, "saving key index for service %s", service)
	}
	return nil
}
