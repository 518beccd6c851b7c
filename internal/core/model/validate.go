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

package model

import "fmt"

// requiredEpisodeFields are the top-level keys every episode document must
// carry, in the order they are reported when missing.
var requiredEpisodeFields = []string{"episode_id", "title", "description", "skills", "scenes"}

// requiredSceneFields are the keys every scene must carry regardless of
// whether it is interactive.
var requiredSceneFields = []string{"scene_number", "interaction", "video_url", "prompt", "dialogue"}

// interactiveSceneFields are the keys that must be present on interactive
// scenes and absent from non-interactive ones.
var interactiveSceneFields = []string{
	"interaction_type", "question", "options", "correct_answer_index",
	"correct_feedback_url", "incorrect_feedback_url", "idle_url",
}

// ValidateEpisodeSchema checks a decoded episode document against the
// structural contract and returns every violation found, not just the first.
//
// The error strings are load-bearing: the repair stage feeds them verbatim
// back to the language model as correction instructions, so their wording is
// part of the repair prompt and must stay stable.
//
// Validation operates on the raw decoded JSON (map form) rather than on the
// EpisodeDocument struct because presence matters here. A struct cannot tell
// a missing "dialogue" key apart from an empty string, and the repair model
// needs to be told exactly which keys are absent.
func ValidateEpisodeSchema(episode map[string]any) (bool, []string) {
	var errors []string

	for _, field := range requiredEpisodeFields {
		if _, ok := episode[field]; !ok {
			errors = append(errors, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	rawScenes, ok := episode["scenes"]
	if !ok {
		errors = append(errors, "Missing 'scenes' field")
		return false, errors
	}
	scenes, ok := rawScenes.([]any)
	if !ok {
		errors = append(errors, "Missing 'scenes' field")
		return false, errors
	}

	if len(scenes) != RequiredSceneCount {
		errors = append(errors, fmt.Sprintf("Expected %d scenes, got %d", RequiredSceneCount, len(scenes)))
	}

	for i, rawScene := range scenes {
		scene, ok := rawScene.(map[string]any)
		if !ok {
			errors = append(errors, fmt.Sprintf("Scene %d: Missing required field '%s'", i+1, "scene_number"))
			continue
		}
		errors = append(errors, validateScene(scene, i+1)...)
	}

	return len(errors) == 0, errors
}

// validateScene checks a single scene. The position argument is the scene's
// 1-based slot in the scenes array, used when the scene does not carry its
// own scene_number.
func validateScene(scene map[string]any, position int) []string {
	var errors []string

	sceneNum := position
	if n, ok := jsonInt(scene["scene_number"]); ok {
		sceneNum = n
	}

	for _, field := range requiredSceneFields {
		if _, ok := scene[field]; !ok {
			errors = append(errors, fmt.Sprintf("Scene %d: Missing required field '%s'", sceneNum, field))
		}
	}

	isInteractive, _ := scene["interaction"].(bool)
	shouldBeInteractive := IsInteractiveScene(sceneNum)

	if isInteractive != shouldBeInteractive {
		errors = append(errors, fmt.Sprintf(
			"Scene %d: interaction should be %v, got %v", sceneNum, shouldBeInteractive, isInteractive))
	}

	if isInteractive {
		for _, field := range interactiveSceneFields {
			if _, ok := scene[field]; !ok {
				errors = append(errors, fmt.Sprintf("Scene %d: Interactive scene missing '%s'", sceneNum, field))
			}
		}
		if rawOptions, ok := scene["options"]; ok {
			options, isList := rawOptions.([]any)
			if !isList || len(options) != QuizOptionCount {
				errors = append(errors, fmt.Sprintf(
					"Scene %d: 'options' must be a list of exactly %d items", sceneNum, QuizOptionCount))
			}
		}
		if rawIdx, ok := scene["correct_answer_index"]; ok {
			idx, isInt := jsonInt(rawIdx)
			if !isInt || idx < 0 || idx > QuizOptionCount-1 {
				errors = append(errors, fmt.Sprintf(
					"Scene %d: 'correct_answer_index' must be 0-%d", sceneNum, QuizOptionCount-1))
			}
		}
	} else {
		for _, field := range interactiveSceneFields {
			if _, ok := scene[field]; ok {
				errors = append(errors, fmt.Sprintf(
					"Scene %d: Non-interactive scene should not have '%s'", sceneNum, field))
			}
		}
	}

	return errors
}

// jsonInt coerces a decoded JSON number to an int. encoding/json decodes all
// numbers in a map[string]any as float64, so a whole-valued float counts as
// an int here while a fractional one does not.
func jsonInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
