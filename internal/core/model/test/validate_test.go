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

// Package model_test contains unit tests for the data models defined in the
// model package. This file exercises the episode schema validator, which is
// the gatekeeper between the generation stages and the media engine.
package model_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toonlabs/episode-engine/internal/core/model"
)

// validEpisodeMap builds a fully valid eight-scene episode in raw decoded
// JSON form. Scenes 2, 4 and 6 are interactive quiz checkpoints; the rest
// are narrative-only. Tests mutate the returned map to create violations.
func validEpisodeMap() map[string]any {
	scenes := make([]any, 0, model.RequiredSceneCount)
	for i := 1; i <= model.RequiredSceneCount; i++ {
		scene := map[string]any{
			"scene_number": float64(i),
			"interaction":  model.IsInteractiveScene(i),
			"video_url":    fmt.Sprintf("gs://placeholder/scene%d.mp4", i),
			"prompt":       fmt.Sprintf("Scene %d visual description.", i),
			"dialogue":     fmt.Sprintf("Scene %d dialogue.", i),
		}
		if model.IsInteractiveScene(i) {
			scene["interaction_type"] = "quiz"
			scene["question"] = "Which option is correct?"
			scene["options"] = []any{"A", "B", "C", "D"}
			scene["correct_answer_index"] = float64(0)
			scene["correct_feedback_url"] = fmt.Sprintf("gs://placeholder/scene%d_correct.mp4", i)
			scene["incorrect_feedback_url"] = fmt.Sprintf("gs://placeholder/scene%d_incorrect.mp4", i)
			scene["idle_url"] = fmt.Sprintf("gs://placeholder/scene%d_idle.mp4", i)
		}
		scenes = append(scenes, scene)
	}
	return map[string]any{
		"episode_id":  "test_episode",
		"title":       "Test Episode",
		"description": "A test episode.",
		"skills":      []any{"Testing"},
		"scenes":      scenes,
	}
}

// sceneAt returns the scene map at the given 0-based slot.
func sceneAt(episode map[string]any, slot int) map[string]any {
	return episode["scenes"].([]any)[slot].(map[string]any)
}

// TestValidateValidEpisode verifies that a well-formed episode produces no
// errors at all.
func TestValidateValidEpisode(t *testing.T) {
	ok, errs := model.ValidateEpisodeSchema(validEpisodeMap())
	assert.True(t, ok)
	assert.Empty(t, errs)
}

// TestValidateExampleEpisodeShape round-trips the few-shot reference episode
// through JSON and checks that its two scenes individually satisfy the
// per-scene rules. The full document is intentionally short of eight scenes,
// so only the scene-count error is expected.
func TestValidateExampleEpisodeShape(t *testing.T) {
	raw, err := json.Marshal(model.GetExampleEpisode())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	ok, errs := model.ValidateEpisodeSchema(decoded)
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "Expected 8 scenes, got 2", errs[0])
}

// TestValidateMissingTopLevelFields checks that each absent top-level field
// is reported, and that a missing scenes field short-circuits with the
// dedicated error.
func TestValidateMissingTopLevelFields(t *testing.T) {
	episode := validEpisodeMap()
	delete(episode, "title")
	delete(episode, "skills")

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Missing required field: title")
	assert.Contains(t, errs, "Missing required field: skills")

	delete(episode, "scenes")
	ok, errs = model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Missing 'scenes' field")
	// The validator must stop after the scenes error rather than crash on
	// the absent array.
	assert.Equal(t, "Missing 'scenes' field", errs[len(errs)-1])
}

// TestValidateSceneCount verifies the exact-count rule in both directions.
func TestValidateSceneCount(t *testing.T) {
	episode := validEpisodeMap()
	scenes := episode["scenes"].([]any)
	episode["scenes"] = scenes[:7]

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Expected 8 scenes, got 7")
}

// TestValidateInteractionPlacement flips the interaction flag on a narrative
// scene and off on a checkpoint scene, and expects both mismatches to be
// reported with the observed and required values.
func TestValidateInteractionPlacement(t *testing.T) {
	episode := validEpisodeMap()
	sceneAt(episode, 0)["interaction"] = true  // Scene 1 must not be interactive.
	sceneAt(episode, 3)["interaction"] = false // Scene 4 must be interactive.

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Scene 1: interaction should be false, got true")
	assert.Contains(t, errs, "Scene 4: interaction should be true, got false")
}

// TestValidateInteractiveSceneFields removes required quiz fields from an
// interactive scene and checks each is flagged by name.
func TestValidateInteractiveSceneFields(t *testing.T) {
	episode := validEpisodeMap()
	scene := sceneAt(episode, 1) // Scene 2.
	delete(scene, "question")
	delete(scene, "idle_url")

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Scene 2: Interactive scene missing 'question'")
	assert.Contains(t, errs, "Scene 2: Interactive scene missing 'idle_url'")
}

// TestValidateOptionsCount checks the exactly-four rule for quiz options,
// including the non-list case.
func TestValidateOptionsCount(t *testing.T) {
	episode := validEpisodeMap()
	sceneAt(episode, 3)["options"] = []any{"A", "B", "C"}

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Scene 4: 'options' must be a list of exactly 4 items")

	episode = validEpisodeMap()
	sceneAt(episode, 3)["options"] = "A, B, C, D"
	ok, errs = model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Scene 4: 'options' must be a list of exactly 4 items")
}

// TestValidateCorrectAnswerIndexRange probes the boundaries of the answer
// index: 0 and 3 are legal, -1, 4 and fractional values are not.
func TestValidateCorrectAnswerIndexRange(t *testing.T) {
	for _, legal := range []float64{0, 3} {
		episode := validEpisodeMap()
		sceneAt(episode, 5)["correct_answer_index"] = legal
		ok, errs := model.ValidateEpisodeSchema(episode)
		assert.True(t, ok, "index %v should be accepted, got %v", legal, errs)
	}

	for _, illegal := range []any{float64(-1), float64(4), 1.5, "2"} {
		episode := validEpisodeMap()
		sceneAt(episode, 5)["correct_answer_index"] = illegal
		ok, errs := model.ValidateEpisodeSchema(episode)
		assert.False(t, ok, "index %v should be rejected", illegal)
		assert.Contains(t, errs, "Scene 6: 'correct_answer_index' must be 0-3")
	}
}

// TestValidateNonInteractiveForbiddenFields verifies that quiz fields leaking
// onto a narrative scene are each reported.
func TestValidateNonInteractiveForbiddenFields(t *testing.T) {
	episode := validEpisodeMap()
	scene := sceneAt(episode, 2) // Scene 3.
	scene["question"] = "Why is this here?"
	scene["options"] = []any{"A", "B", "C", "D"}

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.Contains(t, errs, "Scene 3: Non-interactive scene should not have 'question'")
	assert.Contains(t, errs, "Scene 3: Non-interactive scene should not have 'options'")
}

// TestValidateAccumulatesErrors confirms the validator reports every
// violation in one pass rather than stopping at the first.
func TestValidateAccumulatesErrors(t *testing.T) {
	episode := validEpisodeMap()
	delete(episode, "description")
	delete(sceneAt(episode, 0), "dialogue")
	sceneAt(episode, 1)["options"] = []any{"A"}

	ok, errs := model.ValidateEpisodeSchema(episode)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, len(errs), 3)
	assert.Contains(t, errs, "Missing required field: description")
	assert.Contains(t, errs, "Scene 1: Missing required field 'dialogue'")
	assert.Contains(t, errs, "Scene 2: 'options' must be a list of exactly 4 items")
}
