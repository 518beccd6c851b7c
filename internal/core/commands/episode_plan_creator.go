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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command for the planning stage, the first generative step of the episode
// pipeline.
//
// Logic Flow:
// The planner takes the user's topic, story style, and character and asks
// the text model for a complete eight-scene episode outline in one request.
// This is the stage where the whole pedagogical arc is decided, so it always
// runs at high reasoning effort.
//
//  1. It receives the `model.EpisodeRequest` from the context.
//  2. It builds the planning prompt from a Go template, injecting the topic,
//     style, character name, and a serialized reference episode that shows
//     the model the exact JSON shape to produce (few-shot prompting).
//  3. If a character reference image was uploaded, the image is attached to
//     the request so the model can ground its scene prompts in the
//     character's actual appearance.
//  4. It sends the request at high reasoning effort and receives a raw JSON
//     string with the full episode plan.
//  5. It places that string into the context for `EpisodeJsonToStruct` to
//     decode.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"google.golang.org/genai"
)

// EpisodePlanCreator is a command that uses a generative model to produce a
// complete episode outline from a user request.
type EpisodePlanCreator struct {
	cor.BaseCommand
	config                   *cloud.Config       // Application configuration, used for prompt templating.
	textModel                cloud.TextGenerator // The rate-limited generative model client.
	template                 *template.Template  // The Go template for building the planning prompt.
	geminiInputTokenCounter  metric.Int64Counter // OTel counter for input tokens.
	geminiOutputTokenCounter metric.Int64Counter // OTel counter for output tokens.
	geminiRetryCounter       metric.Int64Counter // OTel counter for retries.
}

// NewEpisodePlanCreator is the constructor for the EpisodePlanCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application's configuration object.
//   - textModel: The rate-limited wrapper for the generative model client.
//   - template: A parsed Go template for the planning prompt.
//
// Outputs:
//   - *EpisodePlanCreator: A pointer to the newly instantiated command, including initialized telemetry counters.
func NewEpisodePlanCreator(
	name string,
	config *cloud.Config,
	textModel cloud.TextGenerator,
	template *template.Template) *EpisodePlanCreator {

	out := &EpisodePlanCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		textModel:   textModel,
		template:    template}

	// Initialize OpenTelemetry counters for monitoring Gemini API usage for this specific command.
	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.retry", out.GetName()))

	return out
}

// GenerateParams creates the map of dynamic data to be injected into the
// planning prompt template.
//
// Inputs:
//   - request: The user's episode request.
//
// Outputs:
//   - map[string]interface{}: A map of keys and values for template substitution.
func (t *EpisodePlanCreator) GenerateParams(request *model.EpisodeRequest) map[string]interface{} {
	params := make(map[string]interface{})
	params["TOPIC"] = request.Topic
	params["STORY_STYLE"] = request.StoryStyle
	params["CHARACTER_NAME"] = request.CharacterName

	// Provide a complete, well-formed JSON example in the prompt. This
	// technique (few-shot prompting) significantly improves the reliability
	// and structure of the model's output.
	exampleEpisode, _ := json.MarshalIndent(model.GetExampleEpisode(), "", "  ")
	params["EXAMPLE_JSON"] = string(exampleEpisode)
	return params
}

// Execute contains the core logic for prompting the generative model.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (t *EpisodePlanCreator) Execute(context cor.Context) {
	// Retrieve the user request that the service stored on the context.
	request := context.Get(t.GetInputParam()).(*model.EpisodeRequest)

	// Use a buffer to execute the Go template, substituting the dynamic params.
	var buffer bytes.Buffer
	err := t.template.Execute(&buffer, t.GenerateParams(request))
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("failed to execute planning prompt template: %w", err))
		return
	}

	// Prepare the parts for the request. The character reference image, when
	// present, rides along so scene prompts describe the actual character.
	parts := []*genai.Part{{Text: buffer.String()}}
	if len(request.CharacterImage) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: request.CharacterImage, MIMEType: "image/png"}})
	}
	contents := []*genai.Content{{Parts: parts, Role: "user"}}

	// Planning always runs at high reasoning effort: this single call
	// decides the learning arc and all three quiz checkpoints.
	out, err := cloud.GenerateStructuredResponse(
		context.GetContext(),
		t.geminiInputTokenCounter,
		t.geminiOutputTokenCounter,
		t.geminiRetryCounter,
		0,
		t.textModel,
		cloud.ThinkingHigh,
		contents)
	if err != nil {
		t.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(t.GetName(), fmt.Errorf("episode planning request failed: %w", err))
		return
	}

	// On success, update the success counter and place the raw JSON string
	// response into the context for the next command.
	t.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(t.GetOutputParam(), out)
}
