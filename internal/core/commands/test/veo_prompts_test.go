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

// This file tests video prompt assembly: the layering of scene text, global
// style rules, spoken dialogue, and voice rules, plus the negative prompt
// variants for feedback and idle clips.
package commands_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/commands"
)

var testPolicy = cloud.PolicyPrompts{
	GlobalStyle:    "bright 3D cartoon style",
	GlobalVoice:    "warm friendly voice",
	NegativePrompt: "logos, watermarks, scary mood",
	SilenceSuffix:  "speech, talking, narration",
}

func TestBuildScenePromptWithDialogue(t *testing.T) {
	prompt := commands.BuildScenePrompt("Lumi waters a plant", "Look, it's growing!", testPolicy)

	lines := strings.Split(prompt, "\n")
	assert.Equal(t, []string{
		"Lumi waters a plant",
		"Global style rules: bright 3D cartoon style",
		`Spoken dialogue: "Look, it's growing!"`,
		"Voice style rules: warm friendly voice",
	}, lines)
}

func TestBuildScenePromptWithoutDialogue(t *testing.T) {
	prompt := commands.BuildScenePrompt("Lumi waters a plant", "", testPolicy)

	// Silent scenes get no dialogue line and no voice rules.
	assert.NotContains(t, prompt, "Spoken dialogue")
	assert.NotContains(t, prompt, "Voice style rules")
	assert.Contains(t, prompt, "Global style rules: bright 3D cartoon style")
}

func TestFeedbackNegativePrompt(t *testing.T) {
	negative := commands.FeedbackNegativePrompt(testPolicy)

	assert.Equal(t, "logos, watermarks, scary mood, speech, talking, narration", negative)
}

func TestIdleNegativePrompt(t *testing.T) {
	negative := commands.IdleNegativePrompt(testPolicy)

	// Idle clips must be fully silent, so the suppression list is stricter
	// than the feedback one and includes dialogue itself.
	assert.True(t, strings.HasPrefix(negative, "logos, watermarks, scary mood, "))
	assert.Contains(t, negative, "dialogue")
	assert.Contains(t, negative, "mouth movements forming words")
}
