// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// This file tests the defensive decoding of scene expansion responses. The
// model is asked for a single JSON object but sometimes returns a
// one-element array or unusable output, and the decoder must cope with all
// three shapes without losing the scene.
package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toonlabs/episode-engine/internal/core/commands"
)

func TestDecodeExpandedSceneObject(t *testing.T) {
	stub := map[string]any{"scene_number": float64(1), "prompt": "stub prompt"}

	decoded := commands.DecodeExpandedScene(`{"scene_number": 1, "prompt": "expanded prompt"}`, stub)

	assert.Equal(t, "expanded prompt", decoded["prompt"])
}

func TestDecodeExpandedSceneUnwrapsSingleElementArray(t *testing.T) {
	stub := map[string]any{"scene_number": float64(1), "prompt": "stub prompt"}

	decoded := commands.DecodeExpandedScene(`[{"scene_number": 1, "prompt": "expanded prompt"}]`, stub)

	assert.Equal(t, "expanded prompt", decoded["prompt"])
}

func TestDecodeExpandedSceneFallsBackToStub(t *testing.T) {
	stub := map[string]any{"scene_number": float64(3), "prompt": "stub prompt"}

	// Malformed JSON, an empty array, and a bare scalar all keep the stub.
	for _, response := range []string{`{oops`, `[]`, `"just a string"`} {
		decoded := commands.DecodeExpandedScene(response, stub)
		assert.Equal(t, "stub prompt", decoded["prompt"], "response %q should keep the stub", response)
	}
}
