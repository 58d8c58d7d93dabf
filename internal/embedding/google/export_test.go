// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playbook Contributors

package google

import "google.golang.org/genai"

// FirstVector exposes firstVector for white-box testing.
var FirstVector = func(resp *genai.EmbedContentResponse) ([]float32, error) {
	return firstVector(resp)
}

// EmbedConfig exposes embedConfig for white-box testing.
var EmbedConfig = func(dimensions int) *genai.EmbedContentConfig {
	return embedConfig(dimensions)
}
