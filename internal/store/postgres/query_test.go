// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package postgres

import (
	"strings"
	"testing"

	"github.com/playbook-dev/playbook/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery_NoFilters(t *testing.T) {
	query, args := buildListQuery(store.ListFilter{})

	assert.Contains(t, query, "WHERE 1 = 1")
	assert.Contains(t, query, "ORDER BY created_at ASC, id ASC")
	assert.Contains(t, query, "LIMIT $1 OFFSET $2")
	assert.Equal(t, []any{store.DefaultListLimit, 0}, args)
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	query, args := buildListQuery(store.ListFilter{
		Map:        "Bind",
		Agent:      "Sova",
		PlaybookID: "pb-1",
		Skip:       20,
		Limit:      10,
	})

	assert.Contains(t, query, "map = $1 AND agent = $2 AND playbook_id = $3")
	assert.Contains(t, query, "LIMIT $4 OFFSET $5")
	assert.Equal(t, []any{"Bind", "Sova", "pb-1", 10, 20}, args)
}

func TestBuildListQuery_NegativeSkip(t *testing.T) {
	_, args := buildListQuery(store.ListFilter{Agent: "Omen", Skip: -3})
	assert.Equal(t, []any{"Omen", store.DefaultListLimit, 0}, args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
}

func TestMigrationStatements_UseDimension(t *testing.T) {
	stmts := migrationStatements(768)
	require.NotEmpty(t, stmts)
	assert.Equal(t, "CREATE EXTENSION IF NOT EXISTS vector", stmts[0])

	joined := strings.Join(stmts, "\n")
	assert.Contains(t, joined, "embedding        vector(768) NOT NULL")
	assert.Contains(t, joined, "query_embedding    vector(768)")
	assert.Contains(t, joined, "CREATE OR REPLACE FUNCTION match_plays(")
	assert.Contains(t, joined, "1 - (p.embedding <=> query_embedding) >= match_threshold")
	assert.NotContains(t, joined, "vector(1536)")
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("0b6f6f3a-1c1e-4a43-9c1f-2a3b4c5d6e7f"))
	assert.False(t, validID("not-a-uuid"))
	assert.False(t, validID(""))
}

func TestOptional(t *testing.T) {
	assert.False(t, optional("").Valid)
	v := optional("Jett")
	assert.True(t, v.Valid)
	assert.Equal(t, "Jett", v.String)
}

func TestNew_RejectsNilDB(t *testing.T) {
	_, err := New(nil, 3)
	require.Error(t, err)
}
