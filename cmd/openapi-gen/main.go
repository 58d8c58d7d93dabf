// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playbook-dev/playbook/internal/play"
	"github.com/playbook-dev/playbook/internal/server"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec builds a server with every route registered and returns the
// OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubPlays{}, nil)
	if err != nil {
		return nil, pberr.Errorf(pberr.CodeCLISetupFailure, "creating services: %w", err)
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, pberr.Errorf(pberr.CodeCLISetupFailure, "creating server: %w", err)
	}
	srv.RegisterServices(svc)

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// stubPlays satisfies server.PlayService. Its methods are never called.
type stubPlays struct{}

func (stubPlays) Create(context.Context, play.CreateInput) (*store.Play, error) { return nil, nil }
func (stubPlays) List(context.Context, store.ListFilter) ([]*store.Play, error) { return nil, nil }
func (stubPlays) Get(context.Context, string) (*store.Play, error)              { return nil, nil }
func (stubPlays) Search(context.Context, play.SearchInput) ([]store.ScoredPlay, error) {
	return nil, nil
}

func (stubPlays) Update(context.Context, string, store.PlayPatch) (*store.Play, error) {
	return nil, nil
}
func (stubPlays) Delete(context.Context, string) error { return nil }
