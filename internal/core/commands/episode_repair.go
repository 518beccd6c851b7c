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
// validation and repair stage, the quality gate between the text pipeline
// and the expensive media engine.
//
// Logic Flow:
// The stage is a small, explicit state machine with a first-class attempt
// counter, so its termination guarantee can be read (and tested) directly:
//
//	validate -> valid?            -> done (decode to EpisodeDocument)
//	         -> invalid, attempts
//	            remaining?        -> repair (model call) -> validate again
//	         -> invalid, attempts
//	            exhausted         -> fail with ErrGenerationExhausted
//
// Validation runs at most MaxValidationAttempts times per episode, repair at
// most MaxValidationAttempts-1 times, regardless of what the repair model
// returns. Each repair call receives the validator's error strings verbatim
// plus the full current episode JSON, and runs at high reasoning effort.
//
// On success the validated map is decoded into the strongly-typed
// `model.EpisodeDocument`, which is what the media engine consumes.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
)

// MaxValidationAttempts is the total number of validation passes an episode
// gets. The count includes the first validation, so an episode sees at most
// MaxValidationAttempts-1 repair calls.
const MaxValidationAttempts = 3

// EpisodeRepairLoop is a command that validates an episode against the
// schema contract and uses the generative model to repair violations, up to
// a fixed attempt budget.
type EpisodeRepairLoop struct {
	cor.BaseCommand
	textModel                cloud.TextGenerator // The rate-limited generative model client.
	promptTemplate           *template.Template  // The Go template for the repair prompt.
	geminiInputTokenCounter  metric.Int64Counter // OTel counter for input tokens.
	geminiOutputTokenCounter metric.Int64Counter // OTel counter for output tokens.
	geminiRetryCounter       metric.Int64Counter // OTel counter for retries.
	repairCounter            metric.Int64Counter // OTel counter for repair attempts.
}

// NewEpisodeRepairLoop is the constructor for the EpisodeRepairLoop command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - textModel: The client for the generative AI model.
//   - prompt: The parsed Go template for the repair prompt.
//
// Outputs:
//   - *EpisodeRepairLoop: A pointer to the newly instantiated command.
func NewEpisodeRepairLoop(
	name string,
	textModel cloud.TextGenerator,
	prompt *template.Template) *EpisodeRepairLoop {
	out := &EpisodeRepairLoop{
		BaseCommand:    *cor.NewBaseCommand(name),
		textModel:      textModel,
		promptTemplate: prompt}

	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.retry", out.GetName()))
	out.repairCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.repair.attempts", out.GetName()))

	return out
}

// Execute runs the validate-repair state machine.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *EpisodeRepairLoop) Execute(context cor.Context) {
	episode := context.Get(c.GetInputParam()).(map[string]any)

	var lastErrors []string
	for attempt := 1; attempt <= MaxValidationAttempts; attempt++ {
		valid, validationErrors := model.ValidateEpisodeSchema(episode)
		if valid {
			doc, err := DecodeEpisodeDocument(episode)
			if err != nil {
				c.GetErrorCounter().Add(context.GetContext(), 1)
				context.AddError(c.GetName(), fmt.Errorf("validated episode failed to decode: %w", err))
				return
			}
			c.GetSuccessCounter().Add(context.GetContext(), 1)
			context.Add(c.GetOutputParam(), doc)
			context.Add(cor.CtxOut, doc)
			return
		}
		lastErrors = validationErrors

		// The final validation attempt gets no repair call; the budget is
		// spent.
		if attempt == MaxValidationAttempts {
			break
		}

		repaired, err := c.repair(context, episode, validationErrors, attempt)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("episode repair attempt %d failed: %w", attempt, err))
			return
		}
		episode = repaired
	}

	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), fmt.Errorf("%w after %d attempts, final errors: %s",
		model.ErrGenerationExhausted, MaxValidationAttempts, strings.Join(lastErrors, "; ")))
}

// repair asks the model to fix the episode, handing it the validator's
// error strings verbatim and the full current document.
func (c *EpisodeRepairLoop) repair(context cor.Context, episode map[string]any, validationErrors []string, attempt int) (map[string]any, error) {
	c.repairCounter.Add(context.GetContext(), 1)

	ctx, span := c.Tracer.Start(context.GetContext(), fmt.Sprintf("%s_repair_%d", c.GetName(), attempt))
	span.SetAttributes(
		attribute.Int("attempt", attempt),
		attribute.Int("validation_error_count", len(validationErrors)),
	)
	defer span.End()

	episodeJson, err := json.MarshalIndent(episode, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal episode for repair prompt: %w", err)
	}

	var errorList strings.Builder
	for _, e := range validationErrors {
		fmt.Fprintf(&errorList, "- %s\n", e)
	}

	vocabulary := map[string]any{
		"VALIDATION_ERRORS": errorList.String(),
		"EPISODE_JSON":      string(episodeJson),
	}

	var doc bytes.Buffer
	if err := c.promptTemplate.Execute(&doc, vocabulary); err != nil {
		return nil, fmt.Errorf("failed to execute repair prompt template: %w", err)
	}

	// Repair runs at high reasoning effort: the model must reconcile the
	// whole document against the full rule set, not patch one field.
	out, err := cloud.GenerateStructuredResponse(
		ctx,
		c.geminiInputTokenCounter,
		c.geminiOutputTokenCounter,
		c.geminiRetryCounter,
		0,
		c.textModel,
		cloud.ThinkingHigh,
		cloud.NewTextPart(doc.String()))
	if err != nil {
		return nil, err
	}

	var repaired map[string]any
	if err := json.Unmarshal([]byte(out), &repaired); err != nil {
		return nil, fmt.Errorf("repair response was not a JSON object: %w", err)
	}
	return repaired, nil
}

// DecodeEpisodeDocument converts the loose map form of a validated episode
// into the strongly-typed document the media engine consumes. Round-tripping
// through JSON keeps the struct tags as the single source of field mapping.
func DecodeEpisodeDocument(episode map[string]any) (*model.EpisodeDocument, error) {
	raw, err := json.Marshal(episode)
	if err != nil {
		return nil, err
	}
	doc := &model.EpisodeDocument{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
