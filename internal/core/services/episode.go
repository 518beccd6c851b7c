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

// Package services contains the business logic that sits between the HTTP
// API and the generation pipeline. This file defines the EpisodeService,
// which owns the lifecycle of episode generation jobs: it assigns episode
// ids, launches the pipeline in the background, tracks each job's status in
// an in-memory registry, and serves status lookups for polling clients.
package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/toonlabs/episode-engine/internal/core/commands"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
)

// EpisodeService owns episode generation jobs from submission to completion.
// The status registry is in-memory: an episode chat session polls the same
// server instance that accepted its request, and a lost status simply means
// the user regenerates.
type EpisodeService struct {
	Pipeline cor.Command // The episode generation workflow to run per job.

	mu       sync.RWMutex
	statuses map[string]*model.EpisodeStatus
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewEpisodeService creates an episode service around the given generation
// pipeline.
func NewEpisodeService(pipeline cor.Command, logger *slog.Logger) *EpisodeService {
	return &EpisodeService{
		Pipeline: pipeline,
		statuses: make(map[string]*model.EpisodeStatus),
		tracer:   otel.Tracer("episode-service"),
		logger:   logger,
	}
}

// NewEpisodeID mints a unique episode identifier. The id doubles as the
// episode's storage prefix, so it embeds a timestamp for operators browsing
// the bucket plus a random suffix for uniqueness.
func NewEpisodeID() string {
	u := uuid.New()
	return fmt.Sprintf("ep_%d_%s", time.Now().Unix(), hex.EncodeToString(u[:])[:8])
}

// StartEpisodeGeneration accepts a generation request, registers a pending
// job for it, and launches the pipeline in a background goroutine. It
// returns the episode id immediately; clients follow progress by polling.
//
// Inputs:
//   - request: The validated user request (topic, style, character).
//
// Outputs:
//   - string: The id of the newly started episode job.
func (s *EpisodeService) StartEpisodeGeneration(request *model.EpisodeRequest) string {
	episodeID := NewEpisodeID()
	now := time.Now()

	s.mu.Lock()
	s.statuses[episodeID] = &model.EpisodeStatus{
		EpisodeID: episodeID,
		Status:    model.StatusPending,
		Message:   "Episode accepted and queued for generation.",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Unlock()

	// The job must outlive the HTTP request that submitted it, so it runs on
	// a fresh root context rather than the request's.
	go s.generate(context.Background(), episodeID, request)

	return episodeID
}

// GetEpisodeStatus returns the current status of a job, or false when the
// episode id is unknown.
func (s *EpisodeService) GetEpisodeStatus(episodeID string) (*model.EpisodeStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[episodeID]
	return status, ok
}

// generate runs the full pipeline for one episode and records the outcome.
// It is the only writer of a job's terminal state.
func (s *EpisodeService) generate(ctx context.Context, episodeID string, request *model.EpisodeRequest) {
	traceCtx, span := s.tracer.Start(ctx, "generate-episode")
	defer span.End()

	s.updateStatus(episodeID, model.StatusGenerating, "Generating your episode. This takes a few minutes.", "", nil)
	s.logger.Info("starting episode generation", "episode_id", episodeID, "topic", request.Topic)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(traceCtx)
	chainCtx.Add(cor.CtxIn, request)
	chainCtx.Add(commands.GetEpisodeRequestName(), request)
	chainCtx.Add(commands.GetEpisodeIdName(), episodeID)
	// Close removes the temp files the media stages downloaded.
	defer chainCtx.Close()

	s.Pipeline.Execute(chainCtx)

	if chainCtx.HasErrors() {
		details := make([]string, 0, len(chainCtx.GetErrors()))
		for name, err := range chainCtx.GetErrors() {
			details = append(details, fmt.Sprintf("(%s): %v", name, err))
		}
		errorDetails := strings.Join(details, "; ")
		span.SetStatus(codes.Error, "episode generation failed")
		s.logger.Error("episode generation failed", "episode_id", episodeID, "errors", errorDetails)
		// Users get the safe message only; the raw errors stay with operators.
		s.updateStatus(episodeID, model.StatusFailed, model.UserSafeFailureMessage, errorDetails, nil)
		return
	}

	// The chain strips CtxOut after its final command, so the document is
	// read from its named key. The repair loop publishes it there and the
	// URL signer mutates that same pointer.
	episode, ok := chainCtx.Get(commands.GetEpisodeDocName()).(*model.EpisodeDocument)
	if !ok {
		span.SetStatus(codes.Error, "pipeline produced no episode document")
		s.logger.Error("pipeline finished without an episode document", "episode_id", episodeID)
		s.updateStatus(episodeID, model.StatusFailed, model.UserSafeFailureMessage, "pipeline produced no episode document", nil)
		return
	}

	// The planner invents its own episode_id; the job id is the one clients
	// poll with, so it wins. The character name rides along for the client.
	episode.EpisodeID = episodeID
	episode.CharacterName = request.CharacterName

	span.SetStatus(codes.Ok, "episode generation complete")
	s.logger.Info("episode generation complete", "episode_id", episodeID)
	s.updateStatus(episodeID, model.StatusComplete, "Your episode is ready!", "", episode)
}

// updateStatus replaces a job's mutable fields under the write lock.
func (s *EpisodeService) updateStatus(episodeID string, status string, message string, errorDetails string, episode *model.EpisodeDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.statuses[episodeID]
	if !ok {
		return
	}
	entry.Status = status
	entry.Message = message
	entry.ErrorDetails = errorDetails
	entry.Episode = episode
	entry.UpdatedAt = time.Now()
}
