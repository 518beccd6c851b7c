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

// This file, `examples.go`, provides factory functions for creating
// hardcoded, example instances of the data models.
//
// These example objects are crucial for "few-shot" prompting with the
// generative AI models. By providing a concrete example of the desired JSON
// output structure within the prompt itself, we guide the AI to return data
// that is consistent, correctly formatted, and easily parsable.
package model

// GetExampleEpisode creates the reference episode that is embedded in the
// planning prompt as a "few-shot" example. It shows the model the expected
// JSON structure for both non-interactive scenes and interactive quiz
// checkpoints, including the gs:// placeholder URLs that the media engine
// later replaces with rendered clips.
//
// Only two scenes are included. That is enough to demonstrate both scene
// shapes without bloating the prompt, and the planning instructions tell
// the model separately that a real episode has eight.
//
// Outputs:
//   - *EpisodeDocument: A pointer to a hardcoded EpisodeDocument.
func GetExampleEpisode() *EpisodeDocument {
	correctIdx := 0
	out := &EpisodeDocument{
		EpisodeID:   "ecology_explorers_photosynthesis",
		Title:       "Lumi's Nature Lab: How Plants Make Food!",
		Description: "Join Lumi the Bunny in an outdoor ecology learning lab to uncover the three key ingredients plants use to make food, and the oxygen they share with the world.",
		Skills:      []string{"Early Biology", "Scientific Thinking"},
		Scenes: []*Scene{
			{
				SceneNumber: 1,
				Interaction: false,
				VideoURL:    "gs://placeholder/scene1.mp4",
				Prompt:      "Cinematic 2D storybook-style outdoor ecology learning lab. Include a wooden field table, plant pots, magnifying glass, and subtle observation tools with NO readable text. Foreground features one clearly drooping plant with pale leaves. Lumi the Bunny kneels beside it, gently lifting a leaf with concern. Warm morning sunlight, soft shadows, strong depth.",
				Dialogue:    "Oh no… this little plant is tired. Have you ever wondered how plants make their food?",
			},
			{
				SceneNumber:          2,
				Interaction:          true,
				InteractionType:      InteractionTypeQuiz,
				VideoURL:             "gs://placeholder/scene2.mp4",
				CorrectFeedbackURL:   "gs://placeholder/scene2_correct.mp4",
				IncorrectFeedbackURL: "gs://placeholder/scene2_incorrect.mp4",
				IdleURL:              "gs://placeholder/scene2_idle.mp4",
				Prompt:               "Same outdoor ecology lab. Lumi stands front and center, thinking and curious about plants. Background shows various potted plants at different stages of growth. Lighting is bright and encouraging. No readable text anywhere.",
				Dialogue:             "Plants need three things to make their food. Do you remember what sunlight does?",
				Question:             "What does sunlight help plants do?",
				Options:              []string{"Make food", "Take a nap", "Hide from bugs", "Drink water"},
				CorrectAnswerIndex:   &correctIdx,
			},
		},
	}
	return out
}
