// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package google

import (
	"context"

	"google.golang.org/genai"

	"github.com/playbook-dev/playbook/internal/embedding"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-embedding-001"

// Compile-time interface check.
var _ embedding.Embedder = (*Embedder)(nil)

// Config holds Google embedding configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional
	Model      string
	Dimensions int // 0 leaves the model default
}

// Embedder implements embedding.Embedder using the Gemini API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

// New creates a new Google embedder. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, pberr.New(pberr.CodeEmbeddingRequestInvalid, "google: missing api_key in config", pberr.FieldProvider("google"))
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, pberr.Wrapf(err, pberr.CodeEmbeddingUpstreamFailure, "google: creating client")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

func (e *Embedder) Name() string  { return "google" }
func (e *Embedder) Model() string { return e.model }

// Embed requests a single embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), embedConfig(e.dimensions))
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeEmbeddingUpstreamFailure, "google: embedding content",
			pberr.FieldProvider("google"), pberr.Field("model", e.model))
	}
	return firstVector(resp)
}

func embedConfig(dimensions int) *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{}
	if dimensions > 0 {
		d := int32(dimensions)
		cfg.OutputDimensionality = &d
	}
	return cfg
}

func firstVector(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, pberr.New(pberr.CodeEmbeddingResponseInvalid, "google: response contains no embedding",
			pberr.FieldProvider("google"))
	}
	return resp.Embeddings[0].Values, nil
}
