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
// Responsibility (COR) pattern's Command interface for the episode
// generation pipeline. This file defines the well-known context keys that
// commands use to share workflow-scoped values that sit outside the normal
// CtxIn/CtxOut piping, such as the original user request and the episode id.
package commands

// GetEpisodeRequestName returns the context key under which workflows store
// the original user request for the duration of the pipeline. Several
// commands need it: the planner reads the topic and style, and the video
// generator reads the character reference image.
func GetEpisodeRequestName() string {
	return "__EPISODE__REQ__"
}

// GetEpisodeIdName returns the context key holding the generated episode id.
// The id is assigned by the service before the chain starts so that every
// command, log line, and storage path agrees on it.
func GetEpisodeIdName() string {
	return "__EPISODE__ID__"
}

// GetEpisodeDocName returns the context key holding the validated episode
// document. The repair stage writes it there so the media commands at the
// end of the chain can reach it regardless of what flows through CtxIn.
func GetEpisodeDocName() string {
	return "__EPISODE__DOC__"
}

