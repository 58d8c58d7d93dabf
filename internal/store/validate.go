// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package store

import (
	"strings"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// ValidateEmbedding checks that vec has exactly dims components.
func ValidateEmbedding(vec []float32, dims int) error {
	if len(vec) != dims {
		return pberr.Errorf(pberr.CodeStoreEmbeddingDimInvalid,
			"embedding has %d dimensions, store expects %d: invalid", len(vec), dims)
	}
	return nil
}

// ValidateForInsert checks the required attributes of a new play.
func ValidateForInsert(p *Play, dims int) error {
	var missing []string
	if strings.TrimSpace(p.PlaybookID) == "" {
		missing = append(missing, "playbook_id")
	}
	if strings.TrimSpace(p.Map) == "" {
		missing = append(missing, FieldMap)
	}
	if strings.TrimSpace(p.Agent) == "" {
		missing = append(missing, FieldAgent)
	}
	if strings.TrimSpace(p.PlayDescription) == "" {
		missing = append(missing, FieldPlayDescription)
	}
	if len(missing) > 0 {
		return pberr.Errorf(pberr.CodeStorePlayInvalidInput,
			"play is missing required fields: %s", strings.Join(missing, ", "))
	}
	return ValidateEmbedding(p.Embedding, dims)
}
