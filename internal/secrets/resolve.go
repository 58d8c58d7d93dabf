// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package secrets

import (
	"errors"
	"log/slog"
	"strings"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/spf13/viper"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
// Returns an error if the URI is malformed.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", pberr.Errorf(pberr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", pberr.Errorf(pberr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Returns the original value unchanged if it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", pberr.Wrapf(err, pberr.CodeSecretResolveFailure,
			"resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveViperSecrets walks all keys in a Viper instance and replaces any
// string value that uses the keyring:// URI scheme with the stored secret.
// Every key that cannot be resolved is reported in the returned error and
// keeps its original value.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}

		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			errs = append(errs, pberr.Wrapf(err, pberr.CodeSecretResolveFailure,
				"config key %s (%s)", key, val))
			continue
		}

		v.Set(key, resolved)
		slog.Debug("resolved keyring reference", "config_key", key)
	}
	if len(errs) > 0 {
		return pberr.Errorf(pberr.CodeSecretResolveFailure, "resolving keyring references: %w", errors.Join(errs...))
	}
	return nil
}
