// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package embedding

import "strings"

const partSeparator = " | "

// PlayFields are the play attributes an embedding is derived from.
type PlayFields struct {
	Map             string
	Agent           string
	EnemyAgent      string
	PlayDescription string
}

// QueryContext carries the optional search filters that are folded into the
// query text. Empty values are omitted.
type QueryContext struct {
	Map        string
	Agent      string
	EnemyAgent string
}

// IsEmpty reports whether no context value is set.
func (c QueryContext) IsEmpty() bool {
	return c.Map == "" && c.Agent == "" && c.EnemyAgent == ""
}

// ComposePlayText renders the canonical text for a play. Stored embeddings
// depend on this exact format.
//
//	Map: Bind | Agent: Sova | Enemy Agent: Jett | Play: Drone default site
func ComposePlayText(f PlayFields) string {
	parts := []string{
		"Map: " + f.Map,
		"Agent: " + f.Agent,
	}
	if f.EnemyAgent != "" {
		parts = append(parts, "Enemy Agent: "+f.EnemyAgent)
	}
	parts = append(parts, "Play: "+f.PlayDescription)
	return strings.Join(parts, partSeparator)
}

// ComposeQueryText renders the text for a search query. Without context the
// raw query is used.
func ComposeQueryText(query string, c QueryContext) string {
	if c.IsEmpty() {
		return query
	}

	var parts []string
	if c.Map != "" {
		parts = append(parts, "Map: "+c.Map)
	}
	if c.Agent != "" {
		parts = append(parts, "Agent: "+c.Agent)
	}
	if c.EnemyAgent != "" {
		parts = append(parts, "Enemy Agent: "+c.EnemyAgent)
	}
	parts = append(parts, "Query: "+query)
	return strings.Join(parts, partSeparator)
}

// Normalize replaces newlines with spaces and trims surrounding whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
