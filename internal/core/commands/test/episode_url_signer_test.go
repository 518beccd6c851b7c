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

// This file tests the signer's non-IAM paths: HTTP URLs passing through
// untouched and the public URL form used when the signing call fails.
package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/commands"
)

func TestPublicURL(t *testing.T) {
	obj := &cloud.GCSObject{Bucket: "bkt", Name: "episodes/ep_1/episode.mp4"}

	assert.Equal(t,
		"https://storage.googleapis.com/bkt/episodes/ep_1/episode.mp4",
		commands.PublicURL(obj))
}

func TestSignURIPassesThroughHTTPReferences(t *testing.T) {
	signer := commands.NewEpisodeURLSigner("sign-test", nil, nil, "signer@example.iam.gserviceaccount.com", 0)

	for _, uri := range []string{
		"https://storage.googleapis.com/bkt/episodes/ep_1/episode.mp4?X-Goog-Signature=abc",
		"http://localhost:9000/clip.mp4",
	} {
		signed, err := signer.SignURI(context.Background(), uri)
		require.NoError(t, err)
		assert.Equal(t, uri, signed)
	}
}

func TestSignURIRejectsNonGCSReferences(t *testing.T) {
	signer := commands.NewEpisodeURLSigner("sign-test", nil, nil, "signer@example.iam.gserviceaccount.com", 0)

	_, err := signer.SignURI(context.Background(), "file:///tmp/clip.mp4")
	assert.Error(t, err)
}
