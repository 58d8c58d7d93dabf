// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package server

import (
	"context"

	"github.com/playbook-dev/playbook/internal/embedding"
	"github.com/playbook-dev/playbook/internal/play"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// PlayService is the play operations the routes depend on. *play.Service
// satisfies it.
type PlayService interface {
	Create(ctx context.Context, in play.CreateInput) (*store.Play, error)
	List(ctx context.Context, filter store.ListFilter) ([]*store.Play, error)
	Get(ctx context.Context, id string) (*store.Play, error)
	Search(ctx context.Context, in play.SearchInput) ([]store.ScoredPlay, error)
	Update(ctx context.Context, id string, patch store.PlayPatch) (*store.Play, error)
	Delete(ctx context.Context, id string) error
}

// StatusService reports the embedding provider state. *embedding.Composer
// satisfies it.
type StatusService interface {
	Status() embedding.Status
}

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
type Services struct {
	plays  PlayService
	status StatusService // optional; nil = status reports no provider
}

// NewServices creates a Services instance with validation.
func NewServices(plays PlayService, status StatusService) (*Services, error) {
	if plays == nil {
		return nil, pberr.New(pberr.CodeServerConfigInvalid, "play service is required")
	}
	return &Services{plays: plays, status: status}, nil
}

// Plays returns the play service.
func (s *Services) Plays() PlayService {
	return s.plays
}

// Status returns the status service, which may be nil.
func (s *Services) Status() StatusService {
	return s.status
}
