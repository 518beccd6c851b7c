// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines a
// command that acts as a data transformation step in the workflow.
//
// Logic Flow:
// This command follows the `EpisodePlanCreator` in the chain. It takes the
// raw JSON string output from the generative model and decodes it into the
// loose map form that the rest of the text pipeline works in.
//
// The map form (rather than the EpisodeDocument struct) is deliberate: the
// expansion and repair stages must preserve whatever the model produced,
// including malformed or extra fields, because the schema validator needs to
// see missing and forbidden keys exactly as the model emitted them. The
// conversion to a strongly-typed struct happens later, after validation has
// passed, in the repair command.
//
//  1. It receives the raw JSON string from the context (output of the previous command).
//  2. It decodes it with `json.Unmarshal` into a `map[string]any`.
//  3. It stamps the workflow's episode id onto the document, overriding
//     whatever content-derived id the model invented, so storage paths and
//     registry lookups stay consistent.
//  4. It puts the decoded map back into the context for the `SceneExpander`.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/toonlabs/episode-engine/internal/core/cor"
)

// EpisodeJsonToStruct is a command that parses the planner's JSON output
// into the decoded map form used by the expansion and repair stages.
type EpisodeJsonToStruct struct {
	cor.BaseCommand // Embeds the BaseCommand for common functionality.
}

// NewEpisodeJsonToStruct is the constructor for the EpisodeJsonToStruct command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - outputParamName: The context key where the resulting map will be stored.
//
// Outputs:
//   - *EpisodeJsonToStruct: A pointer to the newly instantiated command.
func NewEpisodeJsonToStruct(name string, outputParamName string) *EpisodeJsonToStruct {
	out := EpisodeJsonToStruct{BaseCommand: *cor.NewBaseCommand(name)}
	// Set the specific output parameter name for this command instance.
	out.OutputParamName = outputParamName
	return &out
}

// Execute contains the core logic for parsing the JSON.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *EpisodeJsonToStruct) Execute(context cor.Context) {
	// Retrieve the raw JSON string from the context, which was the output of the previous command.
	in := context.Get(s.GetInputParam()).(string)

	var decoded any
	err := json.Unmarshal([]byte(in), &decoded)
	if err != nil {
		// If parsing fails, it's a critical error. Record it and stop.
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("failed to unmarshal episode plan JSON: %w", err))
		return
	}

	// The model occasionally wraps the episode object in a one-element
	// array. Unwrap that case; any other shape is unusable.
	var doc map[string]any
	switch v := decoded.(type) {
	case map[string]any:
		doc = v
	case []any:
		if len(v) == 1 {
			doc, _ = v[0].(map[string]any)
		}
	}
	if doc == nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("episode plan JSON is not an object"))
		return
	}

	// The model invents a content-derived id; replace it with the id the
	// service allocated so every downstream path uses the same one.
	if episodeID, ok := context.Get(GetEpisodeIdName()).(string); ok && episodeID != "" {
		doc["episode_id"] = episodeID
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)

	// Place the decoded map into the designated output parameter in the context.
	context.Add(s.GetOutputParam(), doc)

	// Also place it in the general-purpose output slot for the next command in the chain.
	context.Add(cor.CtxOut, doc)
}
