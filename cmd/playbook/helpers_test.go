// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// isolate gives the test a fresh global Viper, an empty HOME and working
// directory, and blanks the environment variables config reads.
func isolate(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	oldLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(oldLogger) })

	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"OPENAI_API_KEY",
		"OPENAI_EMBEDDING_MODEL",
		"PLAYBOOK_EMBEDDING_API_KEY",
		"PLAYBOOK_EMBEDDING_MODEL",
		"PLAYBOOK_EMBEDDING_PROVIDER",
		"PLAYBOOK_EMBEDDING_BASE_URL",
		"PLAYBOOK_NETWORKING_LISTEN",
		"PLAYBOOK_STORAGE_BACKEND",
		"PLAYBOOK_STORAGE_DSN",
		"PLAYBOOK_STORAGE_VECTOR_DIMENSIONS",
	} {
		t.Setenv(name, "")
	}
}

// newTestRoot isolates the test and returns a root command with args set
// and stdout captured. Logs are discarded.
func newTestRoot(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	isolate(t)

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root, out
}

// fakeOpenAI serves the embeddings endpoint with a constant vector.
type fakeOpenAI struct {
	calls  atomic.Int32
	vector []float32
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/embeddings") {
		http.NotFound(w, r)
		return
	}
	f.calls.Add(1)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": f.vector},
		},
		"model": "text-embedding-ada-002",
		"usage": map[string]int{"prompt_tokens": 4, "total_tokens": 4},
	})
}

func newFakeOpenAI(t *testing.T) (*fakeOpenAI, *httptest.Server) {
	t.Helper()
	api := &fakeOpenAI{vector: []float32{1, 0, 0}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

// useFakeOpenAI points the embedding config at a fake endpoint with
// three-dimensional vectors and a sqlite store in a temp dir.
func useFakeOpenAI(t *testing.T) *fakeOpenAI {
	t.Helper()
	api, srv := newFakeOpenAI(t)
	t.Setenv("PLAYBOOK_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("PLAYBOOK_EMBEDDING_BASE_URL", srv.URL)
	t.Setenv("PLAYBOOK_STORAGE_VECTOR_DIMENSIONS", "3")
	return api
}
