// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"errors"
	"testing"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config validation", pberr.Errorf(pberr.CodeConfigValidateInvalidValue, "validating config: %w", errors.New("bad")), 2},
		{"cli input", pberr.New(pberr.CodeCLIInputInvalid, "secret value is empty"), 2},
		{"wrapped missing api key", pberr.Wrap(pberr.New(pberr.CodeEmbeddingRequestInvalid, "missing api_key"), pberr.CodeCLISetupFailure, "wiring playbook"), 2},
		{"server down", pberr.New(pberr.CodeCLIServerDown, "not running"), 1},
		{"plain error", errors.New("unknown command"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestStartCommand_InvalidConfigExitsWithTwo(t *testing.T) {
	root, _ := newTestRoot(t, "start")
	t.Setenv("PLAYBOOK_STORAGE_BACKEND", "mongo")

	assert.Equal(t, 2, exitCode(root.Execute()))
}
