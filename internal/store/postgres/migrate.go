// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package postgres

import "fmt"

// migrationStatements returns the idempotent schema for a store with the
// given embedding dimension. Statements run in order.
func migrationStatements(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS plays (
	id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	playbook_id      TEXT NOT NULL,
	map              TEXT NOT NULL,
	agent            TEXT NOT NULL,
	enemy_agent      TEXT,
	play_description TEXT NOT NULL,
	embedding        vector(%d) NOT NULL,
	user_id          TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_plays_map_agent ON plays (map, agent)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_playbook ON plays (playbook_id)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_created ON plays (created_at, id)`,
		fmt.Sprintf(`
CREATE OR REPLACE FUNCTION match_plays(
	query_embedding    vector(%d),
	filter_map         TEXT,
	filter_agent       TEXT,
	filter_enemy_agent TEXT,
	match_threshold    DOUBLE PRECISION,
	match_count        INT
)
RETURNS TABLE (
	id               UUID,
	playbook_id      TEXT,
	map              TEXT,
	agent            TEXT,
	enemy_agent      TEXT,
	play_description TEXT,
	embedding        vector(%d),
	user_id          TEXT,
	created_at       TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ,
	similarity       DOUBLE PRECISION
)
LANGUAGE sql STABLE
AS $$
	SELECT p.id, p.playbook_id, p.map, p.agent, p.enemy_agent, p.play_description,
		p.embedding, p.user_id, p.created_at, p.updated_at,
		1 - (p.embedding <=> query_embedding) AS similarity
	FROM plays p
	WHERE (filter_map IS NULL OR p.map = filter_map)
		AND (filter_agent IS NULL OR p.agent = filter_agent)
		AND (filter_enemy_agent IS NULL OR p.enemy_agent = filter_enemy_agent)
		AND 1 - (p.embedding <=> query_embedding) >= match_threshold
	ORDER BY p.embedding <=> query_embedding ASC, p.created_at ASC, p.id ASC
	LIMIT match_count
$$`, dimensions, dimensions),
	}
}
