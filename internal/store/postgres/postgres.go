// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

// Package postgres implements store.PlayStore on PostgreSQL with pgvector.
// Similarity search is delegated to the match_plays SQL function installed
// by the migration.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

func init() {
	store.RegisterBackend("postgres", func(cfg store.StorageConfig) (store.PlayStore, error) {
		if cfg.DSN == "" {
			return nil, pberr.New(pberr.CodeConfigValidateInvalidValue,
				"storage.dsn is required for the postgres backend", pberr.FieldBackend("postgres"))
		}
		return Open(context.Background(), cfg.DSN, cfg.VectorDimensions)
	})
}

// Compile-time interface check.
var _ store.PlayStore = (*PlayStore)(nil)

const playColumns = `id, playbook_id, map, agent, enemy_agent, play_description, embedding, user_id, created_at, updated_at`

// PlayStore implements store.PlayStore backed by PostgreSQL.
type PlayStore struct {
	db         *sql.DB
	dimensions int
}

// Open connects to dsn and applies the schema migration.
func Open(ctx context.Context, dsn string, dimensions int) (*PlayStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "opening postgres db")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "pinging postgres db")
	}

	ps, err := New(db, dimensions)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ps, nil
}

// New wraps an existing connection pool without running migrations.
func New(db *sql.DB, dimensions int) (*PlayStore, error) {
	if db == nil {
		return nil, pberr.New(pberr.CodeStoreDatabaseFailure, "postgres db is nil")
	}
	if dimensions <= 0 {
		dimensions = store.DefaultVectorDimensions
	}
	return &PlayStore{db: db, dimensions: dimensions}, nil
}

// Migrate creates the plays table and the match_plays function.
func (s *PlayStore) Migrate(ctx context.Context) error {
	for i, stmt := range migrationStatements(s.dimensions) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return pberr.Wrapf(err, pberr.CodeStoreMigrationFailure, "applying migration step %d", i+1)
		}
	}
	return nil
}

func (s *PlayStore) List(ctx context.Context, filter store.ListFilter) ([]*store.Play, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "listing plays")
	}
	defer func() { _ = rows.Close() }()

	plays := []*store.Play{}
	for rows.Next() {
		p, err := scanPlay(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "iterating plays")
	}
	return plays, nil
}

func (s *PlayStore) Get(ctx context.Context, id string) (*store.Play, error) {
	if !validID(id) {
		return nil, pberr.New(pberr.CodeStorePlayGetNotFound, "play not found", pberr.FieldPlayID(id))
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+playColumns+` FROM plays WHERE id = $1`, id)
	p, err := scanPlay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pberr.New(pberr.CodeStorePlayGetNotFound, "play not found", pberr.FieldPlayID(id))
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PlayStore) Insert(ctx context.Context, play *store.Play) (*store.Play, error) {
	if err := store.ValidateForInsert(play, s.dimensions); err != nil {
		return nil, err
	}

	stmt := `
		INSERT INTO plays (playbook_id, map, agent, enemy_agent, play_description, embedding, user_id)
		VALUES (` + placeholders(7) + `)
		RETURNING ` + playColumns

	row := s.db.QueryRowContext(ctx, stmt,
		play.PlaybookID, play.Map, play.Agent, nullString(play.EnemyAgent),
		play.PlayDescription, pgvector.NewVector(play.Embedding), nullString(play.UserID),
	)
	p, err := scanPlay(row)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "inserting play", pberr.FieldPlaybookID(play.PlaybookID))
	}
	return p, nil
}

func (s *PlayStore) Update(ctx context.Context, play *store.Play, expectedUpdatedAt time.Time) (*store.Play, error) {
	if err := store.ValidateEmbedding(play.Embedding, s.dimensions); err != nil {
		return nil, err
	}
	if !validID(play.ID) {
		return nil, pberr.New(pberr.CodeStorePlayUpdateNotFound, "play not found", pberr.FieldPlayID(play.ID))
	}

	// updated_at is bumped by at least a microsecond so the version always moves.
	const stmt = `
		UPDATE plays SET
			map = $1, agent = $2, enemy_agent = $3, play_description = $4, embedding = $5,
			updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $6 AND updated_at = $7
		RETURNING ` + playColumns

	row := s.db.QueryRowContext(ctx, stmt,
		play.Map, play.Agent, nullString(play.EnemyAgent), play.PlayDescription,
		pgvector.NewVector(play.Embedding), play.ID, expectedUpdatedAt,
	)
	p, err := scanPlay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missOrConflict(ctx, play.ID)
	}
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "updating play", pberr.FieldPlayID(play.ID))
	}
	return p, nil
}

func (s *PlayStore) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM plays WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "checking play existence", pberr.FieldPlayID(id))
	}
	if !exists {
		return pberr.New(pberr.CodeStorePlayUpdateNotFound, "play not found", pberr.FieldPlayID(id))
	}
	return pberr.New(pberr.CodeStorePlayUpdateConflict, "play was modified concurrently", pberr.FieldPlayID(id))
}

func (s *PlayStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pberr.New(pberr.CodeStorePlayDeleteNotFound, "play not found", pberr.FieldPlayID(id))
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM plays WHERE id = $1`, id)
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "deleting play", pberr.FieldPlayID(id))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "checking rows affected")
	}
	if rows == 0 {
		return pberr.New(pberr.CodeStorePlayDeleteNotFound, "play not found", pberr.FieldPlayID(id))
	}
	return nil
}

// SearchSimilar calls match_plays. Empty filters are passed as NULL, which
// the function treats as "any".
func (s *PlayStore) SearchSimilar(ctx context.Context, q store.SearchQuery) ([]store.ScoredPlay, error) {
	if err := store.ValidateEmbedding(q.Vector, s.dimensions); err != nil {
		return nil, err
	}

	const stmt = `SELECT ` + playColumns + `, similarity FROM match_plays($1, $2, $3, $4, $5, $6)`
	rows, err := s.db.QueryContext(ctx, stmt,
		pgvector.NewVector(q.Vector), optional(q.Map), optional(q.Agent), optional(q.EnemyAgent),
		q.Threshold, q.EffectiveLimit(),
	)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreSearchDatabase, "calling match_plays")
	}
	defer func() { _ = rows.Close() }()

	results := []store.ScoredPlay{}
	for rows.Next() {
		var sim float64
		p, err := scanPlay(rows, &sim)
		if err != nil {
			return nil, err
		}
		results = append(results, store.ScoredPlay{Play: p, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreSearchDatabase, "iterating search results")
	}
	return results, nil
}

// Close closes the underlying connection pool.
func (s *PlayStore) Close() error {
	return s.db.Close()
}

// buildListQuery renders the list statement and its arguments.
func buildListQuery(filter store.ListFilter) (string, []any) {
	where, args := []string{"1 = 1"}, []any{}

	if filter.Map != "" {
		where, args = append(where, "map = "+placeholder(len(args)+1)), append(args, filter.Map)
	}
	if filter.Agent != "" {
		where, args = append(where, "agent = "+placeholder(len(args)+1)), append(args, filter.Agent)
	}
	if filter.PlaybookID != "" {
		where, args = append(where, "playbook_id = "+placeholder(len(args)+1)), append(args, filter.PlaybookID)
	}

	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	query := `SELECT ` + playColumns + ` FROM plays
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at ASC, id ASC
		LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, filter.EffectiveLimit(), skip)

	return query, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlay(row scanner, extra ...any) (*store.Play, error) {
	var (
		p           store.Play
		enemy, user sql.NullString
		vector      pgvector.Vector
	)
	dest := []any{&p.ID, &p.PlaybookID, &p.Map, &p.Agent, &enemy, &p.PlayDescription, &vector, &user, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "scanning play")
	}

	if enemy.Valid {
		p.EnemyAgent = &enemy.String
	}
	if user.Valid {
		p.UserID = &user.String
	}
	p.Embedding = vector.Slice()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// validID reports whether id can name a row. Anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// optional maps "" to NULL for function arguments.
func optional(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
