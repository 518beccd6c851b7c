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

// This file, `transient.go`, contains struct definitions for data models
// that live only in memory while a generation workflow is running. These
// objects are intermediate containers for data as it is processed and passed
// between commands in a chain of responsibility; they are never written to
// storage in this form.
package model

import "time"

// Lifecycle states for an episode generation job. A job moves strictly
// forward: pending, then generating, then either complete or failed.
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// UserSafeFailureMessage is the only failure text ever shown to an end user.
// Raw pipeline errors are kept in the ErrorDetails field for operators and
// must never leak into this message.
const UserSafeFailureMessage = "That didn't work — please try again.\n" +
	"Make sure your topic is kid-appropriate and doesn't include copyrighted characters."

// EpisodeStatus is the registry's view of one generation job. It is what the
// polling endpoint reads, so every field an API response needs lives here.
type EpisodeStatus struct {
	EpisodeID    string           `json:"episode_id"`
	Status       string           `json:"status"`                  // One of the Status* constants above.
	Message      string           `json:"message"`                 // Human-readable progress or failure text.
	ErrorDetails string           `json:"error_details,omitempty"` // Raw error for operators, never shown to users.
	Episode      *EpisodeDocument `json:"episode,omitempty"`       // Populated only once the job completes.
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SceneMediaResult carries the rendered clip locations for a single scene
// out of the media generation engine. For non-interactive scenes only
// VideoURI is set. All URIs are gs:// references; signing happens later.
type SceneMediaResult struct {
	SceneNumber          int
	VideoURI             string
	CorrectFeedbackURI   string
	IncorrectFeedbackURI string
	IdleURI              string
}

// EpisodeMediaResult is the media engine's full output for one episode:
// per-scene clip locations plus the stitched master that concatenates the
// main clips in scene order.
type EpisodeMediaResult struct {
	Scenes      []*SceneMediaResult
	StitchedURI string
}
