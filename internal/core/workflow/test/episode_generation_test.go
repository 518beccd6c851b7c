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

// Package workflow_test contains integration tests for the core application
// workflows. This file, `episode_generation_test.go`, tests the complete
// `EpisodeGenerationWorkflow`: planning an episode from a topic, expanding and
// validating each scene, rendering the clips with Veo, stitching the final
// video, and signing the playback URLs.
package workflow_test

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toonlabs/episode-engine/internal/core/commands"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"github.com/toonlabs/episode-engine/internal/core/workflow"
	test "github.com/toonlabs/episode-engine/internal/testutil"
	"go.opentelemetry.io/otel/codes"
)

// TestEpisodeGenerationChain performs an end-to-end integration test of the
// episode generation workflow. It feeds the pipeline a realistic user request
// and runs the entire chain of commands against live Vertex AI and GCS
// endpoints. The test's success is determined by whether the workflow
// completes without any errors being added to its context.
//
// Note that this test renders real video with Veo, so a full run takes
// several minutes and consumes generation quota. It is intended to be run
// manually against a configured test project rather than per commit.
//
// Inputs:
//   - t: A pointer to the testing.T object, provided by the Go testing framework,
//     used for logging, error reporting, and assertions.
func TestEpisodeGenerationChain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping live episode generation in short mode")
	}

	// Start a new OpenTelemetry trace span so this run shows up in Cloud Trace
	// alongside production pipeline executions.
	traceCtx, span := tracer.Start(ctx, "episode-generation-test")
	defer span.End()

	// Initialize the workflow under test with the shared config and cloud
	// clients. "episode-writer" and "scene-renderer" name the model
	// configurations from the test TOML files.
	episodeGeneration := workflow.NewEpisodeGenerationPipeline(
		config, cloudClients, "episode-writer", "scene-renderer", "")

	// Create a new chain of responsibility (cor) context to manage state
	// throughout the workflow execution.
	chainCtx := cor.NewBaseContext()
	// Pass the Go context (which includes our tracing information) into the chain context.
	chainCtx.SetContext(traceCtx)
	// Seed the chain with the inputs the service layer would normally provide:
	// the user request on CtxIn plus the request and episode id under their
	// well-known keys.
	request := test.GetTestEpisodeRequest()
	chainCtx.Add(cor.CtxIn, request)
	chainCtx.Add(commands.GetEpisodeRequestName(), request)
	chainCtx.Add(commands.GetEpisodeIdName(), "ep_0_testrun")
	// Close removes any temp files the media commands left behind.
	defer chainCtx.Close()

	// Execute the entire episode generation workflow.
	episodeGeneration.Execute(chainCtx)

	// After execution, loop through any errors that were recorded in the context
	// by the workflow's commands and print them for debugging.
	for k, err := range chainCtx.GetErrors() {
		fmt.Printf("Error: (%s): %v\n", k, err)
	}

	// If the context contains any errors, we mark the trace span with an error status.
	if chainCtx.HasErrors() {
		span.SetStatus(codes.Error, "failed to execute episode generation test")
	}

	// The primary assertion of the test: verify that the workflow's context has no errors.
	// If this passes, it means every command in the chain executed successfully.
	assert.False(t, chainCtx.HasErrors())

	// The chain clears CtxOut as it pipes values between commands, so the
	// signed episode document is read from its named key. Check the
	// structural pieces the frontend depends on before declaring success.
	episode, ok := chainCtx.Get(commands.GetEpisodeDocName()).(*model.EpisodeDocument)
	assert.True(t, ok)
	if ok {
		assert.NotEmpty(t, episode.StitchedVideoURL)
		assert.Len(t, episode.Scenes, model.RequiredSceneCount)
	}

	// Mark the trace span as "Ok" to signify a successful test run.
	span.SetStatus(codes.Ok, "passed - episode generation test")

	// For debugging purposes, log the final episode document assembled by the
	// workflow. This can be useful for manually verifying scene URLs.
	log.Println(chainCtx.Get(commands.GetEpisodeDocName()))
}
