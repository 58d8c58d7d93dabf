// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playbook-dev/playbook/internal/embedding"
	"github.com/playbook-dev/playbook/internal/play"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

const playsPath = "/api/v1/plays"

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Play endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-plays",
		Method:      http.MethodGet,
		Path:        playsPath,
		Summary:     "List plays",
		Tags:        []string{"plays"},
	}, s.handleListPlays)

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-play",
		Method:        http.MethodPost,
		Path:          playsPath,
		Summary:       "Create a play",
		Tags:          []string{"plays"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePlay)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-similar-plays",
		Method:      http.MethodGet,
		Path:        playsPath + "/search/similar",
		Summary:     "Search for plays similar to a query",
		Tags:        []string{"plays"},
	}, s.handleSearchPlays)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-play",
		Method:      http.MethodGet,
		Path:        playsPath + "/{play_id}",
		Summary:     "Get a play",
		Tags:        []string{"plays"},
	}, s.handleGetPlay)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-play",
		Method:      http.MethodPut,
		Path:        playsPath + "/{play_id}",
		Summary:     "Partially update a play",
		Tags:        []string{"plays"},
	}, s.handleUpdatePlay)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-play",
		Method:        http.MethodDelete,
		Path:          playsPath + "/{play_id}",
		Summary:       "Delete a play",
		Tags:          []string{"plays"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeletePlay)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "service-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Service status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

// PlayBody is the wire form of a stored play. The embedding is never exposed.
type PlayBody struct {
	ID              string    `json:"id" doc:"Play ID"`
	PlaybookID      string    `json:"playbook_id" doc:"Owning playbook"`
	Map             string    `json:"map" example:"Bind"`
	Agent           string    `json:"agent" example:"Sova"`
	EnemyAgent      *string   `json:"enemy_agent" example:"Jett"`
	PlayDescription string    `json:"play_description" example:"Drone default site"`
	UserID          *string   `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ScoredPlayBody is a search hit.
type ScoredPlayBody struct {
	PlayBody
	Similarity float64 `json:"similarity" doc:"Cosine similarity to the query"`
}

type listPlaysInput struct {
	Map        string `query:"map" doc:"Exact map filter"`
	Agent      string `query:"agent" doc:"Exact agent filter"`
	PlaybookID string `query:"playbook_id" doc:"Exact playbook filter"`
	Skip       int    `query:"skip" default:"0" minimum:"0" doc:"Rows to skip"`
	Limit      int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum rows to return"`
}
type listPlaysOutput struct {
	Body []PlayBody
}

type createPlayInput struct {
	Body struct {
		PlaybookID      string  `json:"playbook_id" minLength:"1" doc:"Owning playbook"`
		Map             string  `json:"map" minLength:"1" doc:"Map name"`
		Agent           string  `json:"agent" minLength:"1" doc:"Agent name"`
		EnemyAgent      *string `json:"enemy_agent,omitempty" doc:"Optional enemy agent"`
		PlayDescription string  `json:"play_description" minLength:"1" doc:"Free-text play description"`
		UserID          *string `json:"user_id,omitempty" doc:"Optional owner reference"`
	}
}
type playOutput struct {
	Body PlayBody
}

type searchPlaysInput struct {
	Query      string  `query:"query" required:"true" minLength:"1" doc:"Natural language query"`
	Map        string  `query:"map" doc:"Exact map filter"`
	Agent      string  `query:"agent" doc:"Exact agent filter"`
	EnemyAgent string  `query:"enemy_agent" doc:"Exact enemy agent filter"`
	Threshold  float64 `query:"threshold" default:"0.7" minimum:"0" maximum:"1" doc:"Minimum similarity"`
	Limit      int     `query:"limit" default:"5" minimum:"1" maximum:"100" doc:"Maximum results"`
}
type searchPlaysOutput struct {
	Body []ScoredPlayBody
}

type playIDInput struct {
	PlayID string `path:"play_id" doc:"Play ID"`
}

type updatePlayInput struct {
	PlayID string `path:"play_id" doc:"Play ID"`
	Body   struct {
		Map             *string `json:"map,omitempty" minLength:"1"`
		Agent           *string `json:"agent,omitempty" minLength:"1"`
		EnemyAgent      *string `json:"enemy_agent,omitempty" doc:"Empty string clears the enemy agent"`
		PlayDescription *string `json:"play_description,omitempty" minLength:"1"`
	}
}

type statusOutput struct {
	Body struct {
		Status    string            `json:"status" example:"ok" doc:"Service status"`
		Version   string            `json:"version"`
		Embedding *embedding.Status `json:"embedding,omitempty" doc:"Embedding provider state"`
	}
}

// --- Handlers ---

func (s *Server) handleListPlays(ctx context.Context, input *listPlaysInput) (*listPlaysOutput, error) {
	plays, err := s.services.Plays().List(ctx, store.ListFilter{
		Map:        input.Map,
		Agent:      input.Agent,
		PlaybookID: input.PlaybookID,
		Skip:       input.Skip,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, playError("Error fetching plays", err)
	}

	out := &listPlaysOutput{Body: make([]PlayBody, 0, len(plays))}
	for _, p := range plays {
		out.Body = append(out.Body, toPlayBody(p))
	}
	return out, nil
}

func (s *Server) handleCreatePlay(ctx context.Context, input *createPlayInput) (*playOutput, error) {
	p, err := s.services.Plays().Create(ctx, play.CreateInput{
		PlaybookID:      input.Body.PlaybookID,
		Map:             input.Body.Map,
		Agent:           input.Body.Agent,
		EnemyAgent:      deref(input.Body.EnemyAgent),
		PlayDescription: input.Body.PlayDescription,
		UserID:          deref(input.Body.UserID),
	})
	if err != nil {
		return nil, playError("Error creating play", err)
	}
	return &playOutput{Body: toPlayBody(p)}, nil
}

func (s *Server) handleSearchPlays(ctx context.Context, input *searchPlaysInput) (*searchPlaysOutput, error) {
	results, err := s.services.Plays().Search(ctx, play.SearchInput{
		Query:      input.Query,
		Map:        input.Map,
		Agent:      input.Agent,
		EnemyAgent: input.EnemyAgent,
		Threshold:  input.Threshold,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, playError("Error searching for similar plays", err)
	}

	out := &searchPlaysOutput{Body: make([]ScoredPlayBody, 0, len(results))}
	for _, r := range results {
		out.Body = append(out.Body, ScoredPlayBody{PlayBody: toPlayBody(r.Play), Similarity: r.Similarity})
	}
	return out, nil
}

func (s *Server) handleGetPlay(ctx context.Context, input *playIDInput) (*playOutput, error) {
	p, err := s.services.Plays().Get(ctx, input.PlayID)
	if err != nil {
		return nil, playError("Error fetching play", err)
	}
	return &playOutput{Body: toPlayBody(p)}, nil
}

func (s *Server) handleUpdatePlay(ctx context.Context, input *updatePlayInput) (*playOutput, error) {
	p, err := s.services.Plays().Update(ctx, input.PlayID, store.PlayPatch{
		Map:             input.Body.Map,
		Agent:           input.Body.Agent,
		EnemyAgent:      input.Body.EnemyAgent,
		PlayDescription: input.Body.PlayDescription,
	})
	if err != nil {
		return nil, playError("Error updating play", err)
	}
	return &playOutput{Body: toPlayBody(p)}, nil
}

func (s *Server) handleDeletePlay(ctx context.Context, input *playIDInput) (*struct{}, error) {
	if err := s.services.Plays().Delete(ctx, input.PlayID); err != nil {
		return nil, playError("Error deleting play", err)
	}
	return nil, nil
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Version = s.cfg.Version
	if st := s.services.Status(); st != nil {
		status := st.Status()
		out.Body.Embedding = &status
	}
	return out, nil
}

// playError converts a service error into the API error. Only a missing
// play, a lost update race and rejected input are told apart; every other
// cause becomes a 500 whose detail carries the underlying message.
func playError(action string, err error) error {
	switch {
	case pberr.IsNotFound(err):
		return huma.Error404NotFound("Play not found")
	case pberr.IsConflict(err):
		return huma.Error409Conflict("Play was modified by another request; reload and retry")
	case pberr.HasCode(err, pberr.CodePlayInputInvalid):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	slog.Error("internal error", "context", action, "code", pberr.CodeOf(err), "fields", pberr.FieldsOf(err), "error", err)
	return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", action, err.Error()))
}

func toPlayBody(p *store.Play) PlayBody {
	return PlayBody{
		ID:              p.ID,
		PlaybookID:      p.PlaybookID,
		Map:             p.Map,
		Agent:           p.Agent,
		EnemyAgent:      p.EnemyAgent,
		PlayDescription: p.PlayDescription,
		UserID:          p.UserID,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
