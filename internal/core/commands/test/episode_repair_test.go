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

// Package commands_test contains unit tests for the pipeline commands. This
// file tests the validate-and-repair loop: a well-formed episode should pass
// straight through, a broken one should trigger model-driven repair, and a
// model that never fixes the document should exhaust the attempt budget with
// a descriptive error.
package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/commands"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"google.golang.org/genai"
)

// fakeTextGenerator satisfies cloud.TextGenerator, replaying a fixed
// response for every call and counting how often it was asked.
type fakeTextGenerator struct {
	response string
	calls    int
}

func (f *fakeTextGenerator) GenerateContent(
	_ context.Context,
	_ []*genai.Content,
	_ cloud.ThinkingMode) (*genai.GenerateContentResponse, error) {
	f.calls++
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: f.response}},
			},
		}},
	}, nil
}

// repairTemplate is a minimal stand-in for the configured repair prompt.
var repairTemplate = template.Must(template.New("repair").Parse(
	"Errors:\n{{.VALIDATION_ERRORS}}\nEpisode:\n{{.EPISODE_JSON}}"))

// validEpisodeMap builds a structurally complete eight-scene episode in the
// loose map form the planner produces.
func validEpisodeMap() map[string]any {
	scenes := make([]any, 0, model.RequiredSceneCount)
	for i := 1; i <= model.RequiredSceneCount; i++ {
		scene := map[string]any{
			"scene_number": float64(i),
			"interaction":  model.IsInteractiveScene(i),
			"video_url":    fmt.Sprintf("gs://placeholder/scene%d.mp4", i),
			"prompt":       fmt.Sprintf("Scene %d prompt", i),
			"dialogue":     fmt.Sprintf("Scene %d dialogue", i),
		}
		if model.IsInteractiveScene(i) {
			scene["interaction_type"] = "quiz"
			scene["question"] = "What do plants need to make food?"
			scene["options"] = []any{"Sunlight", "Sand", "Rocks", "Snow"}
			scene["correct_answer_index"] = float64(0)
			scene["correct_feedback_url"] = fmt.Sprintf("gs://placeholder/scene%d_correct.mp4", i)
			scene["incorrect_feedback_url"] = fmt.Sprintf("gs://placeholder/scene%d_incorrect.mp4", i)
			scene["idle_url"] = fmt.Sprintf("gs://placeholder/scene%d_idle.mp4", i)
		}
		scenes = append(scenes, scene)
	}
	return map[string]any{
		"episode_id":  "test_episode",
		"title":       "How Plants Make Food",
		"description": "Lumi explores how plants make food",
		"skills":      []any{"Early Biology"},
		"scenes":      scenes,
	}
}

func newRepairContext(episode map[string]any) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, episode)
	return chainCtx
}

func TestRepairLoopPassesValidEpisode(t *testing.T) {
	generator := &fakeTextGenerator{}
	repair := commands.NewEpisodeRepairLoop("repair-test", generator, repairTemplate)

	chainCtx := newRepairContext(validEpisodeMap())
	repair.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	// A valid episode must never cost a model call.
	assert.Equal(t, 0, generator.calls)

	doc, ok := chainCtx.Get(cor.CtxOut).(*model.EpisodeDocument)
	require.True(t, ok)
	assert.Equal(t, "test_episode", doc.EpisodeID)
	assert.Len(t, doc.Scenes, model.RequiredSceneCount)
	assert.True(t, doc.Scenes[1].Interaction)
	assert.Equal(t, 4, len(doc.Scenes[1].Options))
}

func TestRepairLoopFixesBrokenEpisode(t *testing.T) {
	repairedJson, err := json.Marshal(validEpisodeMap())
	require.NoError(t, err)

	generator := &fakeTextGenerator{response: string(repairedJson)}
	repair := commands.NewEpisodeRepairLoop("repair-test", generator, repairTemplate)

	// Break scene 2 by stripping one of its quiz fields.
	broken := validEpisodeMap()
	scene2 := broken["scenes"].([]any)[1].(map[string]any)
	delete(scene2, "question")

	chainCtx := newRepairContext(broken)
	repair.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, 1, generator.calls)

	doc, ok := chainCtx.Get(cor.CtxOut).(*model.EpisodeDocument)
	require.True(t, ok)
	assert.Equal(t, "What do plants need to make food?", doc.Scenes[1].Question)
}

func TestRepairLoopExhaustsAttemptBudget(t *testing.T) {
	// The model parrots back a document that is still broken, so every
	// repair round fails validation again.
	stillBroken := validEpisodeMap()
	scene2 := stillBroken["scenes"].([]any)[1].(map[string]any)
	delete(scene2, "question")
	brokenJson, err := json.Marshal(stillBroken)
	require.NoError(t, err)

	generator := &fakeTextGenerator{response: string(brokenJson)}
	repair := commands.NewEpisodeRepairLoop("repair-test", generator, repairTemplate)

	chainCtx := newRepairContext(stillBroken)
	repair.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	// Three validation attempts allow two intervening repair calls.
	assert.Equal(t, commands.MaxValidationAttempts-1, generator.calls)

	chainErr := chainCtx.GetErrors()["repair-test"]
	require.Error(t, chainErr)
	assert.True(t, errors.Is(chainErr, model.ErrGenerationExhausted))
	assert.Contains(t, chainErr.Error(), "Interactive scene missing 'question'")
}
