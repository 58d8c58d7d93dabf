// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package openai

import (
	"context"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/playbook-dev/playbook/internal/embedding"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "text-embedding-ada-002"

// Compile-time interface check.
var _ embedding.Embedder = (*Embedder)(nil)

// Config holds OpenAI embedding configuration.
type Config struct {
	APIKey     string
	BaseURL    string // optional, useful for testing against a mock server
	Model      string
	Dimensions int // 0 leaves the model default
}

// Embedder implements embedding.Embedder using the OpenAI Embeddings API.
type Embedder struct {
	client     openaisdk.Client
	model      string
	dimensions int
}

// New creates a new OpenAI embedder. Returns an error if the API key is missing.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, pberr.New(pberr.CodeEmbeddingRequestInvalid, "openai: missing api_key in config", pberr.FieldProvider("openai"))
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{
		client:     openaisdk.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *Embedder) Name() string  { return "openai" }
func (e *Embedder) Model() string { return e.model }

// Embed requests a single float embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, buildParams(e.model, e.dimensions, text))
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeEmbeddingUpstreamFailure, "openai: creating embedding",
			pberr.FieldProvider("openai"), pberr.Field("model", e.model))
	}
	if len(resp.Data) == 0 {
		return nil, pberr.New(pberr.CodeEmbeddingResponseInvalid, "openai: response contains no embedding",
			pberr.FieldProvider("openai"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

func buildParams(model string, dimensions int, text string) openaisdk.EmbeddingNewParams {
	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfString: openaisdk.String(text)},
		Model:          openaisdk.EmbeddingModel(model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	if dimensions > 0 {
		params.Dimensions = openaisdk.Int(int64(dimensions))
	}
	return params
}
