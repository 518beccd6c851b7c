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

// This file tests the FFmpeg helper's concat manifest generation. The
// manifest format is consumed by `ffmpeg -f concat`, which requires one
// quoted `file` directive per line in playback order.
package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toonlabs/episode-engine/internal/core/commands"
)

func TestBuildConcatManifest(t *testing.T) {
	manifest := commands.BuildConcatManifest([]string{
		"/tmp/scene_01.mp4",
		"/tmp/scene_02.mp4",
		"/tmp/scene_03.mp4",
	})

	assert.Equal(t,
		"file '/tmp/scene_01.mp4'\n"+
			"file '/tmp/scene_02.mp4'\n"+
			"file '/tmp/scene_03.mp4'\n",
		manifest)
}

func TestBuildConcatManifestEmpty(t *testing.T) {
	assert.Equal(t, "", commands.BuildConcatManifest(nil))
}
