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
// scene expansion stage, which enriches every scene stub from the episode
// plan into a full production-ready scene.
//
// Logic Flow:
// Expansion is an embarrassingly parallel problem: each scene can be
// enriched independently given the episode context, so the command fans the
// scenes out to a worker pool and reassembles them in order.
//
//  1. It receives the decoded episode plan (map form) from the context.
//  2. For each scene it builds an expansion prompt from a Go template,
//     injecting the episode context (title, description, skills) and the
//     scene stub JSON.
//  3. Reasoning effort is tiered per scene: interactive checkpoint scenes
//     get high effort because quiz design happens here, narrative scenes get
//     low effort because only prose polish happens.
//  4. Workers call the model concurrently; each result is decoded and slotted
//     back at its scene's original index so episode order is preserved.
//  5. Two recoveries are applied to each response: if the model wrapped the
//     scene in a one-element JSON array, the element is unwrapped; if the
//     response is neither an object nor such an array, the original stub is
//     kept so a single flaky response cannot sink the episode (the validator
//     and repair stage deal with whatever survives).
//  6. The episode map, now carrying expanded scenes, is placed back into the
//     context for validation and repair.
package commands

import (
	"bytes"
	goctx "context"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"

	"go.opentelemetry.io/otel/metric"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// SceneExpander is a command that expands all scene stubs of an episode plan
// in parallel using a worker pool.
type SceneExpander struct {
	cor.BaseCommand
	textModel                cloud.TextGenerator // The rate-limited generative model client.
	promptTemplate           *template.Template  // The Go template for the expansion prompt.
	numberOfWorkers          int                 // The number of concurrent workers to spawn.
	geminiInputTokenCounter  metric.Int64Counter // OTel counter for input tokens.
	geminiOutputTokenCounter metric.Int64Counter // OTel counter for output tokens.
	geminiRetryCounter       metric.Int64Counter // OTel counter for retries.
}

// NewSceneExpander is the constructor for the SceneExpander command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - textModel: The client for the generative AI model.
//   - prompt: The parsed Go template for the expansion prompt.
//   - numberOfWorkers: The size of the worker pool for concurrent processing.
//
// Outputs:
//   - *SceneExpander: A pointer to the newly instantiated command.
func NewSceneExpander(
	name string,
	textModel cloud.TextGenerator,
	prompt *template.Template,
	numberOfWorkers int) *SceneExpander {
	out := &SceneExpander{
		BaseCommand:     *cor.NewBaseCommand(name),
		textModel:       textModel,
		promptTemplate:  prompt,
		numberOfWorkers: numberOfWorkers}

	// Initialize OpenTelemetry metrics specific to this command.
	out.geminiInputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.input", out.GetName()))
	out.geminiOutputTokenCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.token.output", out.GetName()))
	out.geminiRetryCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.gemini.retry", out.GetName()))

	return out
}

// Execute orchestrates the parallel expansion of all scenes.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *SceneExpander) Execute(context cor.Context) {
	episode := context.Get(s.GetInputParam()).(map[string]any)

	scenes, ok := episode["scenes"].([]any)
	if !ok || len(scenes) == 0 {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("episode plan has no scenes to expand"))
		return
	}

	// The episode context is the same for every scene's prompt.
	episodeContext := map[string]any{
		"title":       episode["title"],
		"description": episode["description"],
		"skills":      episode["skills"],
	}

	var wg sync.WaitGroup

	// Buffered so all jobs can be enqueued without blocking.
	jobs := make(chan *expansionJob, len(scenes))
	results := make(chan *expansionResult, len(scenes))

	for w := 1; w <= s.numberOfWorkers; w++ {
		wg.Add(1)
		go expansionWorker(jobs, results, &wg)
	}

	for i, rawScene := range scenes {
		stub, ok := rawScene.(map[string]any)
		if !ok {
			// A non-object scene cannot be expanded; leave it for the
			// validator to report.
			continue
		}
		jobs <- s.createExpansionJob(context.GetContext(), i, stub, episodeContext)
	}

	close(jobs)
	wg.Wait()
	close(results)

	// Slot each expanded scene back at its original index. Failed or skipped
	// scenes keep their stubs.
	for r := range results {
		if r.err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), r.err)
			continue
		}
		scenes[r.index] = r.scene
	}
	episode["scenes"] = scenes

	if !context.HasErrors() {
		s.GetSuccessCounter().Add(context.GetContext(), 1)
	}

	context.Add(s.GetOutputParam(), episode)
	context.Add(cor.CtxOut, episode)
}

// expansionResult carries one expanded scene (or an error) back from a worker.
type expansionResult struct {
	index int
	scene map[string]any
	err   error
}

// expansionJob packages everything one worker needs to expand one scene.
type expansionJob struct {
	index                    int
	stub                     map[string]any
	ctx                      goctx.Context
	span                     trace.Span
	mode                     cloud.ThinkingMode
	contents                 []*genai.Content
	model                    cloud.TextGenerator
	geminiInputTokenCounter  metric.Int64Counter
	geminiOutputTokenCounter metric.Int64Counter
	geminiRetryCounter       metric.Int64Counter
	err                      error
}

// Close ends the OpenTelemetry span associated with this job.
func (j *expansionJob) Close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// createExpansionJob builds a job for one scene: it renders the prompt,
// selects the thinking mode from the scene's position, and opens a span.
func (s *SceneExpander) createExpansionJob(ctx goctx.Context, index int, stub map[string]any, episodeContext map[string]any) *expansionJob {
	sceneNumber := index + 1
	if n, ok := stub["scene_number"].(float64); ok {
		sceneNumber = int(n)
	}
	interactive := model.IsInteractiveScene(sceneNumber)

	mode := cloud.ThinkingLow
	if interactive {
		mode = cloud.ThinkingHigh
	}

	sceneCtx, sceneSpan := s.Tracer.Start(ctx, fmt.Sprintf("%s_genai_scene_%d", s.GetName(), sceneNumber))
	sceneSpan.SetAttributes(
		attribute.Int("scene_number", sceneNumber),
		attribute.Bool("interactive", interactive),
		attribute.String("thinking_mode", string(mode)),
	)

	stubJson, _ := json.MarshalIndent(stub, "", "  ")
	skillsJson, _ := json.Marshal(episodeContext["skills"])

	vocabulary := make(map[string]any)
	vocabulary["SCENE_NUMBER"] = sceneNumber
	vocabulary["IS_INTERACTIVE"] = interactive
	vocabulary["EPISODE_TITLE"] = episodeContext["title"]
	vocabulary["EPISODE_DESCRIPTION"] = episodeContext["description"]
	vocabulary["EPISODE_SKILLS"] = string(skillsJson)
	vocabulary["SCENE_STUB_JSON"] = string(stubJson)

	var doc bytes.Buffer
	if err := s.promptTemplate.Execute(&doc, vocabulary); err != nil {
		sceneSpan.End()
		return &expansionJob{index: index, stub: stub, err: err}
	}

	contents := []*genai.Content{{Parts: []*genai.Part{{Text: doc.String()}}, Role: "user"}}

	return &expansionJob{
		index:                    index,
		stub:                     stub,
		ctx:                      sceneCtx,
		span:                     sceneSpan,
		mode:                     mode,
		contents:                 contents,
		model:                    s.textModel,
		geminiInputTokenCounter:  s.geminiInputTokenCounter,
		geminiOutputTokenCounter: s.geminiOutputTokenCounter,
		geminiRetryCounter:       s.geminiRetryCounter,
	}
}

// expansionWorker is the function each concurrent goroutine runs. It pulls
// jobs until the channel closes, calling the model and decoding each scene.
func expansionWorker(jobs <-chan *expansionJob, results chan<- *expansionResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		if j.err != nil {
			results <- &expansionResult{index: j.index, err: j.err}
			continue
		}

		out, err := cloud.GenerateStructuredResponse(j.ctx, j.geminiInputTokenCounter, j.geminiOutputTokenCounter, j.geminiRetryCounter, 0, j.model, j.mode, j.contents)
		if err != nil {
			j.Close(codes.Error, "scene expansion failed")
			results <- &expansionResult{index: j.index, err: err}
			continue
		}

		results <- &expansionResult{index: j.index, scene: DecodeExpandedScene(out, j.stub)}
		j.Close(codes.Ok, "completed scene expansion")
	}
}

// DecodeExpandedScene turns a model response into a scene object, applying
// the two recoveries the expansion stage guarantees: a one-element JSON
// array is unwrapped to its element, and anything that is not a JSON object
// falls back to the original stub unchanged.
func DecodeExpandedScene(response string, stub map[string]any) map[string]any {
	var decoded any
	if err := json.Unmarshal([]byte(response), &decoded); err != nil {
		return stub
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if scene, ok := v[0].(map[string]any); ok {
				return scene
			}
		}
	}
	return stub
}
