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

// Package cloud contains data structures and utilities for interacting with Google Cloud services.
// This file specifically defines models and helpers related to Google Cloud Storage (GCS):
// a simplified internal representation of a GCS object, gs:// URI parsing, and the
// canonical object layout for rendered episode media.
//
// Structs:
//   - GCSObject: A simplified internal model for GCS objects used in processing workflows.
//
// Functions:
//   - ParseGCSURI: Splits a gs://bucket/object URI into a GCSObject.
//   - SceneObjectName, EpisodeObjectName: Builders for the episode media layout.
package cloud

import (
	"fmt"
	"strings"
)

// GCSObject is a simplified, internal representation of a Google Cloud Storage (GCS)
// object. It carries just enough information to address a stored clip and is
// lightweight enough to pass between commands in a processing workflow.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
}

// URI renders the object back into gs:// form.
func (g *GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", g.Bucket, g.Name)
}

// ParseGCSURI splits a "gs://bucket/path/to/object" URI into its bucket and
// object name components.
//
// Inputs:
//   - uri: The gs:// URI to parse.
//
// Outputs:
//   - *GCSObject: The parsed bucket and object name.
//   - error: An error if the URI is not a well-formed gs:// reference.
func ParseGCSURI(uri string) (*GCSObject, error) {
	trimmed, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return nil, fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, name, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || name == "" {
		return nil, fmt.Errorf("malformed gs:// uri: %q", uri)
	}
	return &GCSObject{Bucket: bucket, Name: name, MIMEType: "video/mp4"}, nil
}

// Object layout for rendered episode media. Every clip an episode produces
// lives under the episode's own prefix so cleanup and listing stay simple:
//
//	episodes/{episode_id}/scenes/scene_1.mp4
//	episodes/{episode_id}/scenes/scene_2_correct.mp4
//	episodes/{episode_id}/episode.mp4
const (
	episodeScenePrefix = "episodes/%s/scenes/%s"
	episodeMasterName  = "episodes/%s/episode.mp4"
)

// SceneObjectName returns the object name for a per-scene clip file inside
// an episode's scene prefix.
func SceneObjectName(episodeID string, fileName string) string {
	return fmt.Sprintf(episodeScenePrefix, episodeID, fileName)
}

// SceneOutputPrefix returns the gs:// prefix Veo should write a scene's
// output files under.
func SceneOutputPrefix(bucket string, episodeID string) string {
	return fmt.Sprintf("gs://%s/episodes/%s/scenes/", bucket, episodeID)
}

// FeedbackOutputPrefix returns the gs:// prefix for an interactive scene's
// correct and incorrect feedback clips.
func FeedbackOutputPrefix(bucket string, episodeID string, sceneNumber int) string {
	return fmt.Sprintf("gs://%s/episodes/%s/scene_%02d/feedback/", bucket, episodeID, sceneNumber)
}

// IdleOutputPrefix returns the gs:// prefix for an interactive scene's idle
// loop clip.
func IdleOutputPrefix(bucket string, episodeID string, sceneNumber int) string {
	return fmt.Sprintf("gs://%s/episodes/%s/scene_%02d/idle/", bucket, episodeID, sceneNumber)
}

// EpisodeObjectName returns the object name of the stitched episode master.
func EpisodeObjectName(episodeID string) string {
	return fmt.Sprintf(episodeMasterName, episodeID)
}
