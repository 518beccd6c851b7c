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

// Package services_test contains the test suite for the services package.
// This file tests the EpisodeService's job lifecycle: accepting a request,
// tracking it through the pipeline, and exposing its terminal state. The
// pipeline itself is replaced with stubs so the tests exercise the service's
// bookkeeping rather than live cloud calls.
package services_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/toonlabs/episode-engine/internal/core/commands"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"github.com/toonlabs/episode-engine/internal/core/services"
	"github.com/zeebo/assert"
)

// stubFinalStage stands in for the tail of the episode generation workflow.
// It either publishes a finished document the way the real final stages do,
// on both CtxOut and the document's named key, or fails, letting the tests
// drive both terminal states of a job.
type stubFinalStage struct {
	cor.BaseCommand
	fail bool
}

func newStubFinalStage(fail bool) *stubFinalStage {
	return &stubFinalStage{BaseCommand: *cor.NewBaseCommand("stub-final-stage"), fail: fail}
}

func (s *stubFinalStage) Execute(context cor.Context) {
	if s.fail {
		context.AddError(s.GetName(), errors.New("quota exhausted for video model"))
		return
	}
	episodeID := context.Get(commands.GetEpisodeIdName()).(string)
	doc := &model.EpisodeDocument{
		EpisodeID: episodeID,
		Title:     "Test Episode",
	}
	context.Add(commands.GetEpisodeDocName(), doc)
	context.Add(cor.CtxOut, doc)
}

// newStubPipeline wraps the stub stage in a real BaseChain, because that is
// what the service is handed in production. The chain clears CtxOut while
// piping between commands, so the service must find the document under its
// named key; a bare stub command would hide a regression there.
func newStubPipeline(fail bool) cor.Command {
	return cor.NewBaseChain("stub-pipeline").AddCommand(newStubFinalStage(fail))
}

// awaitTerminalStatus polls until the job leaves its in-flight states or the
// timeout elapses. The pipeline runs on a background goroutine, so tests
// cannot read the result synchronously.
func awaitTerminalStatus(t *testing.T, s *services.EpisodeService, episodeID string) *model.EpisodeStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, ok := s.GetEpisodeStatus(episodeID)
		assert.True(t, ok)
		if status.Status != model.StatusPending && status.Status != model.StatusGenerating {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("episode %s never reached a terminal status", episodeID)
	return nil
}

// TestStartEpisodeGeneration verifies the happy path: a request is accepted
// immediately with a pending status, and once the pipeline publishes its
// document the job reports complete with the episode attached.
func TestStartEpisodeGeneration(t *testing.T) {
	service := services.NewEpisodeService(newStubPipeline(false), slog.Default())

	episodeID := service.StartEpisodeGeneration(&model.EpisodeRequest{
		Topic:         "counting to ten",
		StoryStyle:    "space adventure",
		CharacterName: "Robo",
	})
	assert.True(t, strings.HasPrefix(episodeID, "ep_"))

	status := awaitTerminalStatus(t, service, episodeID)
	assert.Equal(t, model.StatusComplete, status.Status)
	assert.NotNil(t, status.Episode)
	assert.Equal(t, episodeID, status.Episode.EpisodeID)
}

// TestEpisodeGenerationFailure verifies that pipeline errors surface as a
// failed status carrying only the user-safe message, with the raw error
// preserved separately for operators.
func TestEpisodeGenerationFailure(t *testing.T) {
	service := services.NewEpisodeService(newStubPipeline(true), slog.Default())

	episodeID := service.StartEpisodeGeneration(&model.EpisodeRequest{
		Topic:         "counting to ten",
		StoryStyle:    "space adventure",
		CharacterName: "Robo",
	})

	status := awaitTerminalStatus(t, service, episodeID)
	assert.Equal(t, model.StatusFailed, status.Status)
	assert.Equal(t, model.UserSafeFailureMessage, status.Message)
	assert.True(t, strings.Contains(status.ErrorDetails, "quota exhausted"))
	assert.Nil(t, status.Episode)
}

// TestGetEpisodeStatusUnknownID verifies the lookup miss path used by the
// API's 404 handling.
func TestGetEpisodeStatusUnknownID(t *testing.T) {
	service := services.NewEpisodeService(newStubPipeline(false), slog.Default())

	_, ok := service.GetEpisodeStatus("ep_0_deadbeef")
	assert.False(t, ok)
}
