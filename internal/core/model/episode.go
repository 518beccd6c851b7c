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

// Package model defines the core data structures for the episode engine.
// This file contains the central artifact of the whole system: the
// EpisodeDocument. The document is created as a stub by the planning stage,
// enriched scene-by-scene by the expansion stage, corrected by the repair
// stage when validation fails, and finally annotated with real video URLs
// by the media generation engine. Once it is handed to the episode registry
// it is treated as read-only.
//
// Structs:
//   - EpisodeDocument: The complete multi-scene learning unit.
//   - Scene: One video segment plus optional quiz interaction.
//   - EpisodeRequest: The user's input that seeds the planning stage.
package model

// Structural constants for a generated episode. Every episode has exactly
// RequiredSceneCount scenes, and the scenes at the positions listed in
// InteractiveSceneNumbers carry a multiple-choice quiz checkpoint. These are
// contracts with the prompt templates and the schema validator, not tunables.
const (
	// RequiredSceneCount is the exact number of scenes in every episode.
	RequiredSceneCount = 8

	// QuizOptionCount is the exact number of answer options on a quiz scene.
	QuizOptionCount = 4

	// InteractionTypeQuiz is the only interaction type currently produced.
	InteractionTypeQuiz = "quiz"
)

// InteractiveSceneNumbers is the fixed set of scene positions that must be
// interaction checkpoints. Scenes 1, 3, 5, 7 and 8 are narrative-only.
var InteractiveSceneNumbers = map[int]bool{2: true, 4: true, 6: true}

// IsInteractiveScene reports whether the scene at the given 1-based position
// must carry an interaction checkpoint.
func IsInteractiveScene(sceneNumber int) bool {
	return InteractiveSceneNumbers[sceneNumber]
}

// Scene represents a single unit of video plus, for interaction checkpoints,
// a four-option multiple-choice quiz and its feedback branch clips.
//
// The interactive-only fields use pointer or omitempty types so that an
// absent field is distinguishable from a zero value. The schema validator
// enforces that they are all present on interactive scenes and all absent on
// non-interactive ones.
type Scene struct {
	SceneNumber int    `json:"scene_number"`         // 1-based position; must match the slice index + 1.
	Interaction bool   `json:"interaction"`          // Whether this scene is an interaction checkpoint.
	VideoURL    string `json:"video_url"`            // Storage reference for the main clip. A gs://placeholder until media generation runs.
	Prompt      string `json:"prompt"`               // Free-text visual description handed to the video generator.
	Dialogue    string `json:"dialogue"`             // The single spoken line for this scene.

	// Interactive-only fields. Present (at minimum as placeholders) when
	// Interaction is true, absent otherwise.
	InteractionType      string   `json:"interaction_type,omitempty"`       // e.g. "quiz".
	Question             string   `json:"question,omitempty"`               // The question posed to the viewer.
	Options              []string `json:"options,omitempty"`                // Exactly four answer options.
	CorrectAnswerIndex   *int     `json:"correct_answer_index,omitempty"`   // Index 0..3 of the correct option.
	CorrectFeedbackURL   string   `json:"correct_feedback_url,omitempty"`   // Reaction clip for a correct answer.
	IncorrectFeedbackURL string   `json:"incorrect_feedback_url,omitempty"` // Reaction clip for an incorrect answer.
	IdleURL              string   `json:"idle_url,omitempty"`               // Silent loop shown while awaiting an answer.
}

// EpisodeDocument is the complete multi-scene learning unit. It is owned
// exclusively by the generation pipeline while in flight, and sealed once it
// is registered with the episode service.
type EpisodeDocument struct {
	EpisodeID        string   `json:"episode_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Skills           []string `json:"skills"`
	Scenes           []*Scene `json:"scenes"`
	CharacterName    string   `json:"character_name,omitempty"`
	StitchedVideoURL string   `json:"stitched_video_url,omitempty"` // Set by the stitcher once all scenes are rendered.
}

// GetScene returns the scene with the given 1-based scene number, or nil if
// the document does not contain it.
func (d *EpisodeDocument) GetScene(sceneNumber int) *Scene {
	for _, s := range d.Scenes {
		if s.SceneNumber == sceneNumber {
			return s
		}
	}
	return nil
}

// EpisodeRequest carries the user's input into the generation pipeline.
// The character image is the decoded reference image bytes, used as a Veo
// asset reference so the character keeps its identity across scenes.
type EpisodeRequest struct {
	Topic          string // The educational topic, e.g. "how plants make food".
	StoryStyle     string // The requested rendering style, e.g. "claymation".
	CharacterName  string // The name of the single guide character.
	CharacterImage []byte // PNG/JPEG bytes of the character reference image.
}
