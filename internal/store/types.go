// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package store

import "time"

// Default pagination and search parameters.
const (
	DefaultListLimit       = 100
	DefaultSearchThreshold = 0.7
	DefaultSearchLimit     = 5
)

// Play is a stored tactical note tied to a map/agent/enemy-agent combination.
// Embedding is derived from Map, Agent, EnemyAgent and PlayDescription and is
// never set directly by a client.
type Play struct {
	ID              string
	PlaybookID      string
	Map             string
	Agent           string
	EnemyAgent      *string
	PlayDescription string
	Embedding       []float32
	UserID          *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EnemyAgentValue returns the enemy agent or "" when unset.
func (p *Play) EnemyAgentValue() string {
	if p.EnemyAgent == nil {
		return ""
	}
	return *p.EnemyAgent
}

// Clone returns a copy of p that shares no pointers or slices with it.
func (p *Play) Clone() *Play {
	c := *p
	if p.EnemyAgent != nil {
		v := *p.EnemyAgent
		c.EnemyAgent = &v
	}
	if p.UserID != nil {
		v := *p.UserID
		c.UserID = &v
	}
	if p.Embedding != nil {
		c.Embedding = append([]float32(nil), p.Embedding...)
	}
	return &c
}

// Field names used in change sets. They match the JSON attribute names.
const (
	FieldMap             = "map"
	FieldAgent           = "agent"
	FieldEnemyAgent      = "enemy_agent"
	FieldPlayDescription = "play_description"
)

// embeddingFields are the attributes the embedding is computed from.
var embeddingFields = map[string]bool{
	FieldMap:             true,
	FieldAgent:           true,
	FieldEnemyAgent:      true,
	FieldPlayDescription: true,
}

// PlayPatch is a partial update. A nil field is left untouched. A non-nil
// EnemyAgent pointing at "" clears the enemy agent.
type PlayPatch struct {
	Map             *string
	Agent           *string
	EnemyAgent      *string
	PlayDescription *string
}

// IsEmpty reports whether the patch sets no field at all.
func (p PlayPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the names of the attributes present in the patch, in a
// fixed order.
func (p PlayPatch) Fields() []string {
	var fields []string
	if p.Map != nil {
		fields = append(fields, FieldMap)
	}
	if p.Agent != nil {
		fields = append(fields, FieldAgent)
	}
	if p.EnemyAgent != nil {
		fields = append(fields, FieldEnemyAgent)
	}
	if p.PlayDescription != nil {
		fields = append(fields, FieldPlayDescription)
	}
	return fields
}

// TouchesEmbedding reports whether any attribute the embedding is derived
// from is present in the patch, whether or not its value differs.
func (p PlayPatch) TouchesEmbedding() bool {
	for _, f := range p.Fields() {
		if embeddingFields[f] {
			return true
		}
	}
	return false
}

// Apply merges the patch over current and returns the merged copy together
// with the attributes whose value actually changed. current is not modified.
func (p PlayPatch) Apply(current *Play) (*Play, []string) {
	merged := current.Clone()
	var changed []string

	if p.Map != nil {
		if *p.Map != merged.Map {
			changed = append(changed, FieldMap)
		}
		merged.Map = *p.Map
	}
	if p.Agent != nil {
		if *p.Agent != merged.Agent {
			changed = append(changed, FieldAgent)
		}
		merged.Agent = *p.Agent
	}
	if p.EnemyAgent != nil {
		if *p.EnemyAgent != merged.EnemyAgentValue() {
			changed = append(changed, FieldEnemyAgent)
		}
		if *p.EnemyAgent == "" {
			merged.EnemyAgent = nil
		} else {
			v := *p.EnemyAgent
			merged.EnemyAgent = &v
		}
	}
	if p.PlayDescription != nil {
		if *p.PlayDescription != merged.PlayDescription {
			changed = append(changed, FieldPlayDescription)
		}
		merged.PlayDescription = *p.PlayDescription
	}

	return merged, changed
}

// ListFilter selects plays by exact-match equality. Empty strings are
// ignored. Limit <= 0 means DefaultListLimit.
type ListFilter struct {
	Map        string
	Agent      string
	PlaybookID string
	Skip       int
	Limit      int
}

// EffectiveLimit returns Limit or the default when unset.
func (f ListFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// SearchQuery is a similarity search over stored embeddings. Empty filter
// strings are ignored.
type SearchQuery struct {
	Vector     []float32
	Map        string
	Agent      string
	EnemyAgent string
	Threshold  float64
	Limit      int
}

// EffectiveLimit returns Limit or the default when unset.
func (q SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultSearchLimit
	}
	return q.Limit
}

// ScoredPlay is a search hit. Similarity is the cosine similarity computed
// by the backend; higher is closer.
type ScoredPlay struct {
	Play       *Play
	Similarity float64
}
