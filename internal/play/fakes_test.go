// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package play_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/playbook-dev/playbook/internal/embedding"
	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeEmbedder records composed texts and returns a vector derived from the
// call count.
type fakeEmbedder struct {
	mu         sync.Mutex
	playCalls  []embedding.PlayFields
	queryCalls []string
	err        error
}

func (f *fakeEmbedder) EmbedPlay(_ context.Context, p embedding.PlayFields) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls = append(f.playCalls, p)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(f.playCalls)), 0, 0}, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, q string, qc embedding.QueryContext) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls = append(f.queryCalls, embedding.ComposeQueryText(q, qc))
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

// memStore is an in-memory store.PlayStore.
type memStore struct {
	mu        sync.Mutex
	plays     map[string]*store.Play
	order     []string
	seq       int
	clock     time.Time
	updates   int
	lastQuery store.SearchQuery
	results   []store.ScoredPlay
	// beforeUpdate runs inside Update before the version check.
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		plays: map[string]*store.Play{},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) List(_ context.Context, f store.ListFilter) ([]*store.Play, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*store.Play{}
	for _, id := range m.order {
		p := m.plays[id]
		if (f.Map == "" || p.Map == f.Map) && (f.Agent == "" || p.Agent == f.Agent) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*store.Play, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plays[id]
	if !ok {
		return nil, pberr.New(pberr.CodeStorePlayGetNotFound, "play not found")
	}
	return p.Clone(), nil
}

func (m *memStore) Insert(_ context.Context, p *store.Play) (*store.Play, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c := p.Clone()
	c.ID = fmt.Sprintf("play-%d", m.seq)
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.plays[c.ID] = c
	m.order = append(m.order, c.ID)
	return c.Clone(), nil
}

func (m *memStore) Update(_ context.Context, p *store.Play, expected time.Time) (*store.Play, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.plays[p.ID]
	if !ok {
		return nil, pberr.New(pberr.CodeStorePlayUpdateNotFound, "play not found")
	}
	if !cur.UpdatedAt.Equal(expected) {
		return nil, pberr.New(pberr.CodeStorePlayUpdateConflict, "play was modified concurrently")
	}
	m.updates++
	c := p.Clone()
	c.CreatedAt = cur.CreatedAt
	c.PlaybookID = cur.PlaybookID
	c.UpdatedAt = m.tick()
	m.plays[c.ID] = c
	return c.Clone(), nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plays[id]; !ok {
		return pberr.New(pberr.CodeStorePlayDeleteNotFound, "play not found")
	}
	delete(m.plays, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) SearchSimilar(_ context.Context, q store.SearchQuery) ([]store.ScoredPlay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	return m.results, nil
}

func (m *memStore) Close() error { return nil }

// bump simulates another writer touching the play.
func (m *memStore) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays[id].UpdatedAt = m.tick()
}
