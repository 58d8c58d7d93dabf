// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

// Package embedding turns plays and search queries into vectors. It owns the
// text composition rules and delegates the vector itself to a provider.
package embedding

import (
	"context"
	"time"

	pberr "github.com/playbook-dev/playbook/pkg/errors"
	"github.com/playbook-dev/playbook/pkg/health"
)

// Embedder is an embedding provider: text in, fixed-length vector out.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Model() string
}

// Observer receives the outcome of every provider call.
type Observer interface {
	ObserveEmbedding(provider string, elapsed time.Duration, err error)
}

// Status describes the active provider for the status endpoint.
type Status struct {
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Dimensions int            `json:"dimensions,omitempty"`
	Health     health.Metrics `json:"health"`
}

// Composer builds embedding text and calls the provider. Calls fail fast:
// no retry and no fallback vector.
type Composer struct {
	embedder   Embedder
	dimensions int
	observer   Observer
	health     *HealthTracker
	nowFunc    func() time.Time
}

// Option configures a Composer.
type Option func(*Composer)

// WithDimensions rejects provider responses whose length differs from n.
func WithDimensions(n int) Option {
	return func(c *Composer) { c.dimensions = n }
}

// WithObserver reports call latency and failures to o.
func WithObserver(o Observer) Option {
	return func(c *Composer) { c.observer = o }
}

// WithHealthTracker replaces the default tracker.
func WithHealthTracker(h *HealthTracker) Option {
	return func(c *Composer) { c.health = h }
}

// NewComposer wraps e.
func NewComposer(e Embedder, opts ...Option) (*Composer, error) {
	if e == nil {
		return nil, pberr.New(pberr.CodeEmbeddingProviderNotFound, "embedding provider is nil")
	}
	c := &Composer{embedder: e, nowFunc: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.health == nil {
		h, err := NewHealthTracker(DefaultHealthCooldown)
		if err != nil {
			return nil, err
		}
		c.health = h
	}
	return c, nil
}

// EmbedPlay embeds the canonical text of a play.
func (c *Composer) EmbedPlay(ctx context.Context, f PlayFields) ([]float32, error) {
	return c.Embed(ctx, ComposePlayText(f))
}

// EmbedQuery embeds a search query with its optional filter context.
func (c *Composer) EmbedQuery(ctx context.Context, query string, qc QueryContext) ([]float32, error) {
	return c.Embed(ctx, ComposeQueryText(query, qc))
}

// Embed normalizes text and sends it to the provider.
func (c *Composer) Embed(ctx context.Context, text string) ([]float32, error) {
	text = Normalize(text)
	if text == "" {
		return nil, pberr.New(pberr.CodeEmbeddingRequestInvalid, "embedding text is empty",
			pberr.FieldProvider(c.embedder.Name()))
	}

	start := c.nowFunc()
	vec, err := c.embedder.Embed(ctx, text)
	if err == nil {
		err = c.checkVector(vec)
	}
	c.record(c.nowFunc().Sub(start), err)
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *Composer) checkVector(vec []float32) error {
	if len(vec) == 0 {
		return pberr.New(pberr.CodeEmbeddingResponseInvalid, "provider returned an empty embedding",
			pberr.FieldProvider(c.embedder.Name()))
	}
	if c.dimensions > 0 && len(vec) != c.dimensions {
		return pberr.New(pberr.CodeEmbeddingResponseInvalid, "provider returned an embedding of unexpected length",
			pberr.FieldProvider(c.embedder.Name()),
			pberr.Field("want", c.dimensions),
			pberr.Field("got", len(vec)))
	}
	return nil
}

func (c *Composer) record(elapsed time.Duration, err error) {
	if err != nil {
		c.health.RecordFailure(err)
	} else {
		c.health.RecordSuccess()
	}
	if c.observer != nil {
		c.observer.ObserveEmbedding(c.embedder.Name(), elapsed, err)
	}
}

// Status returns the provider identity and its health snapshot.
func (c *Composer) Status() Status {
	return Status{
		Provider:   c.embedder.Name(),
		Model:      c.embedder.Model(),
		Dimensions: c.dimensions,
		Health:     c.health.HealthMetrics(),
	}
}
