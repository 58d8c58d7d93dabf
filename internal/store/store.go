// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package store

import (
	"context"
	"time"
)

// PlayStore persists plays and ranks them by embedding similarity.
//
// Implementations return errors classified through pkg/errors: NotFound for
// a missing id on Get/Update/Delete, Conflict when Update's expected version
// no longer matches, InvalidInput for embeddings of the wrong dimension.
type PlayStore interface {
	List(ctx context.Context, filter ListFilter) ([]*Play, error)
	Get(ctx context.Context, id string) (*Play, error)

	// Insert assigns ID, CreatedAt and UpdatedAt and returns the stored row.
	Insert(ctx context.Context, play *Play) (*Play, error)

	// Update writes the mutable fields and embedding of play, bumping
	// UpdatedAt, provided the stored UpdatedAt still equals expectedUpdatedAt.
	Update(ctx context.Context, play *Play, expectedUpdatedAt time.Time) (*Play, error)

	Delete(ctx context.Context, id string) error

	// SearchSimilar returns at most q.Limit plays whose similarity is at
	// least q.Threshold, ordered by non-increasing similarity.
	SearchSimilar(ctx context.Context, q SearchQuery) ([]ScoredPlay, error)

	Close() error
}
