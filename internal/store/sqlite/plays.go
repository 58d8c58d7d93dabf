// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/playbook-dev/playbook/internal/store"
	pberr "github.com/playbook-dev/playbook/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.PlayStore = (*PlayStore)(nil)

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const playColumns = `id, playbook_id, map, agent, enemy_agent, play_description, embedding, user_id, created_at, updated_at`

// PlayStore implements store.PlayStore backed by SQLite with sqlite-vec.
type PlayStore struct {
	db         *sql.DB
	dimensions int
	nowFunc    func() time.Time
}

// NewPlayStore opens (or creates) a SQLite database at dbPath and
// initialises the plays table.
func NewPlayStore(dbPath string, dimensions int) (*PlayStore, error) {
	if dimensions <= 0 {
		dimensions = store.DefaultVectorDimensions
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, pberr.Wrap(err, pberr.CodeStoreMigrationFailure, "migrating plays table")
	}

	return &PlayStore{db: db, dimensions: dimensions, nowFunc: time.Now}, nil
}

func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS plays (
	id               TEXT PRIMARY KEY,
	playbook_id      TEXT NOT NULL,
	map              TEXT NOT NULL,
	agent            TEXT NOT NULL,
	enemy_agent      TEXT,
	play_description TEXT NOT NULL,
	embedding        BLOB NOT NULL,
	user_id          TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plays_map_agent ON plays(map, agent);
CREATE INDEX IF NOT EXISTS idx_plays_playbook ON plays(playbook_id);
CREATE INDEX IF NOT EXISTS idx_plays_created ON plays(created_at, id);
`
	_, err := db.Exec(ddl)
	return err
}

func (s *PlayStore) now() time.Time {
	return s.nowFunc().UTC().Truncate(time.Microsecond)
}

func (s *PlayStore) List(ctx context.Context, filter store.ListFilter) ([]*store.Play, error) {
	var (
		where []string
		args  []any
	)
	if filter.Map != "" {
		where = append(where, "map = ?")
		args = append(args, filter.Map)
	}
	if filter.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, filter.Agent)
	}
	if filter.PlaybookID != "" {
		where = append(where, "playbook_id = ?")
		args = append(args, filter.PlaybookID)
	}

	q := `SELECT ` + playColumns + ` FROM plays`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`

	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	args = append(args, filter.EffectiveLimit(), skip)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "listing plays")
	}
	defer func() { _ = rows.Close() }()

	plays := make([]*store.Play, 0)
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
	row := s.db.QueryRowContext(ctx, `SELECT `+playColumns+` FROM plays WHERE id = ?`, id)
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
	blob, err := sqlite_vec.SerializeFloat32(play.Embedding)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "serializing embedding")
	}

	stored := play.Clone()
	stored.ID = uuid.New().String()
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt

	const q = `INSERT INTO plays (` + playColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		stored.ID, stored.PlaybookID, stored.Map, stored.Agent, nullString(stored.EnemyAgent),
		stored.PlayDescription, blob, nullString(stored.UserID),
		stored.CreatedAt.Format(timeLayout), stored.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "inserting play", pberr.FieldPlaybookID(stored.PlaybookID))
	}
	return stored, nil
}

func (s *PlayStore) Update(ctx context.Context, play *store.Play, expectedUpdatedAt time.Time) (*store.Play, error) {
	if err := store.ValidateEmbedding(play.Embedding, s.dimensions); err != nil {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(play.Embedding)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "serializing embedding")
	}

	updatedAt := s.now()
	if !updatedAt.After(expectedUpdatedAt) {
		updatedAt = expectedUpdatedAt.UTC().Add(time.Microsecond)
	}

	const q = `UPDATE plays
SET map = ?, agent = ?, enemy_agent = ?, play_description = ?, embedding = ?, updated_at = ?
WHERE id = ? AND updated_at = ?`
	res, err := s.db.ExecContext(ctx, q,
		play.Map, play.Agent, nullString(play.EnemyAgent), play.PlayDescription, blob,
		updatedAt.Format(timeLayout), play.ID, expectedUpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "updating play", pberr.FieldPlayID(play.ID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "checking rows affected")
	}
	if n == 0 {
		return nil, s.missOrConflict(ctx, play.ID)
	}

	return s.Get(ctx, play.ID)
}

// missOrConflict explains why a conditional update matched no row.
func (s *PlayStore) missOrConflict(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM plays WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return pberr.New(pberr.CodeStorePlayUpdateNotFound, "play not found", pberr.FieldPlayID(id))
	}
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "checking play existence", pberr.FieldPlayID(id))
	}
	return pberr.New(pberr.CodeStorePlayUpdateConflict, "play was modified concurrently", pberr.FieldPlayID(id))
}

func (s *PlayStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plays WHERE id = ?`, id)
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "deleting play", pberr.FieldPlayID(id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "checking rows affected")
	}
	if n == 0 {
		return pberr.New(pberr.CodeStorePlayDeleteNotFound, "play not found", pberr.FieldPlayID(id))
	}
	return nil
}

// SearchSimilar ranks plays by cosine similarity to q.Vector. Filters are
// applied before ranking, so the limit counts only matching rows.
func (s *PlayStore) SearchSimilar(ctx context.Context, q store.SearchQuery) ([]store.ScoredPlay, error) {
	if err := store.ValidateEmbedding(q.Vector, s.dimensions); err != nil {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(q.Vector)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreSearchDatabase, "serializing query vector")
	}

	var (
		where []string
		args  = []any{blob}
	)
	if q.Map != "" {
		where = append(where, "map = ?")
		args = append(args, q.Map)
	}
	if q.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, q.Agent)
	}
	if q.EnemyAgent != "" {
		where = append(where, "enemy_agent = ?")
		args = append(args, q.EnemyAgent)
	}

	inner := `SELECT ` + playColumns + `, 1 - vec_distance_cosine(embedding, ?) AS similarity FROM plays`
	if len(where) > 0 {
		inner += ` WHERE ` + strings.Join(where, " AND ")
	}
	query := `SELECT ` + playColumns + `, similarity FROM (` + inner + `)
WHERE similarity >= ?
ORDER BY similarity DESC, created_at ASC, id ASC
LIMIT ?`
	args = append(args, q.Threshold, q.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreSearchDatabase, "searching plays")
	}
	defer func() { _ = rows.Close() }()

	results := make([]store.ScoredPlay, 0)
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

// Close closes the underlying database connection.
func (s *PlayStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlay(row scanner, extra ...any) (*store.Play, error) {
	var (
		p                    store.Play
		enemy, user          sql.NullString
		blob                 []byte
		createdAt, updatedAt string
	)
	dest := []any{&p.ID, &p.PlaybookID, &p.Map, &p.Agent, &enemy, &p.PlayDescription, &blob, &user, &createdAt, &updatedAt}
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

	var err error
	if p.Embedding, err = deserializeFloat32(blob); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "decoding embedding", pberr.FieldPlayID(p.ID))
	}
	if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "parsing created_at", pberr.FieldPlayID(p.ID))
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, pberr.Wrap(err, pberr.CodeStoreDatabaseFailure, "parsing updated_at", pberr.FieldPlayID(p.ID))
	}
	return &p, nil
}

// deserializeFloat32 is the inverse of sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
