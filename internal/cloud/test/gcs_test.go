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

// Package cloud_test tests the GCS reference helpers: gs:// URI parsing and
// the object layout every rendered clip and stitched master follows. The
// layout strings are shared between the video generator, the stitcher, and
// the URL signer, so a change here breaks the whole media path.
package cloud_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toonlabs/episode-engine/internal/cloud"
)

func TestParseGCSURI(t *testing.T) {
	obj, err := cloud.ParseGCSURI("gs://my-bucket/episodes/ep_1/scenes/scene_1.mp4")
	require.NoError(t, err)

	assert.Equal(t, "my-bucket", obj.Bucket)
	assert.Equal(t, "episodes/ep_1/scenes/scene_1.mp4", obj.Name)
	assert.Equal(t, "gs://my-bucket/episodes/ep_1/scenes/scene_1.mp4", obj.URI())
}

func TestParseGCSURIRejectsMalformedInput(t *testing.T) {
	for _, uri := range []string{
		"https://storage.googleapis.com/bucket/object",
		"gs://bucket-only",
		"gs:///no-bucket",
		"",
	} {
		_, err := cloud.ParseGCSURI(uri)
		assert.Error(t, err, "uri %q should not parse", uri)
	}
}

func TestEpisodeObjectLayout(t *testing.T) {
	assert.Equal(t, "episodes/ep_1/scenes/scene_3.mp4", cloud.SceneObjectName("ep_1", "scene_3.mp4"))
	assert.Equal(t, "episodes/ep_1/episode.mp4", cloud.EpisodeObjectName("ep_1"))

	assert.Equal(t, "gs://bkt/episodes/ep_1/scenes/", cloud.SceneOutputPrefix("bkt", "ep_1"))
	assert.Equal(t, "gs://bkt/episodes/ep_1/scene_02/feedback/", cloud.FeedbackOutputPrefix("bkt", "ep_1", 2))
	assert.Equal(t, "gs://bkt/episodes/ep_1/scene_06/idle/", cloud.IdleOutputPrefix("bkt", "ep_1", 6))
}
