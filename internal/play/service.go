// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

// Package play implements the play operations on top of a PlayStore and an
// embedding composer.
package play

import (
	"context"
	"log/slog"
	"strings"

	"github.com/playbook-dev/playbook/internal/embedding"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// PlayEmbedder produces vectors for plays and search queries.
type PlayEmbedder interface {
	EmbedPlay(ctx context.Context, f embedding.PlayFields) ([]float32, error)
	EmbedQuery(ctx context.Context, query string, qc embedding.QueryContext) ([]float32, error)
}

// CreateInput holds the client-settable attributes of a new play.
type CreateInput struct {
	PlaybookID      string
	Map             string
	Agent           string
	EnemyAgent      string
	PlayDescription string
	UserID          string
}

// SearchInput is a similarity search request. Threshold and Limit are
// passed through as given; zero Limit means the store default.
type SearchInput struct {
	Query      string
	Map        string
	Agent      string
	EnemyAgent string
	Threshold  float64
	Limit      int
}

// Service coordinates embedding and storage for plays.
type Service struct {
	store    store.PlayStore
	embedder PlayEmbedder
	logger   *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(ps store.PlayStore, e PlayEmbedder, logger *slog.Logger) (*Service, error) {
	if ps == nil {
		return nil, pberr.New(pberr.CodeServerConfigInvalid, "play store is required")
	}
	if e == nil {
		return nil, pberr.New(pberr.CodeServerConfigInvalid, "embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: ps, embedder: e, logger: logger}, nil
}

// Create embeds and stores a new play.
func (s *Service) Create(ctx context.Context, in CreateInput) (*store.Play, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	p := &store.Play{
		PlaybookID:      in.PlaybookID,
		Map:             in.Map,
		Agent:           in.Agent,
		PlayDescription: in.PlayDescription,
	}
	if in.EnemyAgent != "" {
		enemy := in.EnemyAgent
		p.EnemyAgent = &enemy
	}
	if in.UserID != "" {
		user := in.UserID
		p.UserID = &user
	}

	vec, err := s.embedder.EmbedPlay(ctx, fieldsOf(p))
	if err != nil {
		return nil, err
	}
	p.Embedding = vec

	created, err := s.store.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	s.logger.Info("play created",
		"play_id", created.ID,
		"playbook_id", created.PlaybookID,
		"map", created.Map,
		"agent", created.Agent)
	return created, nil
}

// List returns plays matching filter in creation order.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*store.Play, error) {
	return s.store.List(ctx, filter)
}

// Get returns a single play.
func (s *Service) Get(ctx context.Context, id string) (*store.Play, error) {
	return s.store.Get(ctx, id)
}

// Search embeds the query, folding in the non-empty filters as context, and
// ranks stored plays against it with the same filters.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]store.ScoredPlay, error) {
	qc := embedding.QueryContext{Map: in.Map, Agent: in.Agent, EnemyAgent: in.EnemyAgent}

	vec, err := s.embedder.EmbedQuery(ctx, in.Query, qc)
	if err != nil {
		return nil, err
	}

	return s.store.SearchSimilar(ctx, store.SearchQuery{
		Vector:     vec,
		Map:        in.Map,
		Agent:      in.Agent,
		EnemyAgent: in.EnemyAgent,
		Threshold:  in.Threshold,
		Limit:      in.Limit,
	})
}

// Update applies patch to the play with the given id. An empty patch
// returns the stored play untouched. The embedding is recomputed whenever
// the patch names one of its source fields. The write fails with a
// conflict if the play changed after it was read.
func (s *Service) Update(ctx context.Context, id string, patch store.PlayPatch) (*store.Play, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	merged, changed := patch.Apply(current)
	if err := validateMerged(merged); err != nil {
		return nil, err
	}

	if patch.TouchesEmbedding() {
		vec, err := s.embedder.EmbedPlay(ctx, fieldsOf(merged))
		if err != nil {
			return nil, err
		}
		merged.Embedding = vec
	}

	updated, err := s.store.Update(ctx, merged, current.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.logger.Info("play updated",
		"play_id", updated.ID,
		"playbook_id", updated.PlaybookID,
		"fields", patch.Fields(),
		"changed", changed)
	return updated, nil
}

// Delete removes a play permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("play deleted", "play_id", id)
	return nil
}

func fieldsOf(p *store.Play) embedding.PlayFields {
	return embedding.PlayFields{
		Map:             p.Map,
		Agent:           p.Agent,
		EnemyAgent:      p.EnemyAgentValue(),
		PlayDescription: p.PlayDescription,
	}
}

func validateCreate(in CreateInput) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"playbook_id", in.PlaybookID},
		{store.FieldMap, in.Map},
		{store.FieldAgent, in.Agent},
		{store.FieldPlayDescription, in.PlayDescription},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return pberr.Errorf(pberr.CodePlayInputInvalid, "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// validateMerged rejects patches that blank out a required attribute.
func validateMerged(p *store.Play) error {
	var blank []string
	if strings.TrimSpace(p.Map) == "" {
		blank = append(blank, store.FieldMap)
	}
	if strings.TrimSpace(p.Agent) == "" {
		blank = append(blank, store.FieldAgent)
	}
	if strings.TrimSpace(p.PlayDescription) == "" {
		blank = append(blank, store.FieldPlayDescription)
	}
	if len(blank) > 0 {
		return pberr.Errorf(pberr.CodePlayInputInvalid, "required fields cannot be empty: %s", strings.Join(blank, ", "))
	}
	return nil
}
