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
// final pipeline stage: converting the media engine's private gs:// URIs
// into time-limited V4 signed URLs and writing them into the episode
// document the client receives.
//
// Logic Flow:
// Signing uses the IAM Credentials API (SignBlob) on behalf of a dedicated
// signer service account. This is the recommended approach when running on
// GCP infrastructure because no private key file ever exists on the
// machine. Every clip the episode references gets signed: the stitched
// master, each scene's main clip, and for interactive scenes the correct
// and incorrect feedback clips and the idle loop.
package commands

import (
	goctx "context"
	"fmt"
	"log"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
)

// EpisodeURLSigner is a command that signs every clip URI an episode
// references and writes the playable URLs into the episode document.
type EpisodeURLSigner struct {
	cor.BaseCommand
	storageClient *storage.Client
	iamClient     *credentials.IamCredentialsClient
	signerEmail   string        // Service account that performs the signing.
	ttl           time.Duration // Lifetime of each signed URL.
}

// NewEpisodeURLSigner is the constructor for the EpisodeURLSigner command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - storageClient: An initialized *storage.Client.
//   - iamClient: The IAM Credentials client used for keyless signing.
//   - signerEmail: The service account email that signs the URLs.
//   - ttl: How long each signed URL remains valid.
//
// Outputs:
//   - *EpisodeURLSigner: A pointer to the newly instantiated command.
func NewEpisodeURLSigner(
	name string,
	storageClient *storage.Client,
	iamClient *credentials.IamCredentialsClient,
	signerEmail string,
	ttl time.Duration) *EpisodeURLSigner {
	return &EpisodeURLSigner{
		BaseCommand:   *cor.NewBaseCommand(name),
		storageClient: storageClient,
		iamClient:     iamClient,
		signerEmail:   signerEmail,
		ttl:           ttl}
}

// Execute signs all of the episode's clip URIs and fills in the document's
// playback URL fields.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *EpisodeURLSigner) Execute(context cor.Context) {
	media := context.Get(c.GetInputParam()).(*model.EpisodeMediaResult)
	episode := context.Get(GetEpisodeDocName()).(*model.EpisodeDocument)

	ctx := context.GetContext()

	stitchedURL, err := c.SignURI(ctx, media.StitchedURI)
	if err != nil {
		c.GetErrorCounter().Add(ctx, 1)
		context.AddError(c.GetName(), err)
		return
	}
	episode.StitchedVideoURL = stitchedURL

	for _, sceneMedia := range media.Scenes {
		scene := episode.GetScene(sceneMedia.SceneNumber)
		if scene == nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), fmt.Errorf("rendered scene %d is not in the episode document", sceneMedia.SceneNumber))
			return
		}

		if scene.VideoURL, err = c.SignURI(ctx, sceneMedia.VideoURI); err != nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), err)
			return
		}
		if !scene.Interaction {
			continue
		}
		if scene.CorrectFeedbackURL, err = c.SignURI(ctx, sceneMedia.CorrectFeedbackURI); err != nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), err)
			return
		}
		if scene.IncorrectFeedbackURL, err = c.SignURI(ctx, sceneMedia.IncorrectFeedbackURI); err != nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), err)
			return
		}
		if scene.IdleURL, err = c.SignURI(ctx, sceneMedia.IdleURI); err != nil {
			c.GetErrorCounter().Add(ctx, 1)
			context.AddError(c.GetName(), err)
			return
		}
	}

	c.GetSuccessCounter().Add(ctx, 1)
	context.Add(c.GetOutputParam(), episode)
	context.Add(cor.CtxOut, episode)
}

// SignURI creates a time-limited V4 signed URL for a private gs:// object.
// The URL is valid for GET requests only, so clients can stream the clip
// directly from GCS without holding any credentials.
//
// When the signing call itself fails (for example the signer service account
// lacks the token creator role), SignURI falls back to the plain public
// storage URL rather than failing the whole episode. The clip is only
// playable that way if the bucket allows public reads, but a degraded URL
// beats discarding minutes of finished video renders.
//
// Inputs:
//   - ctx: The context for the signing request.
//   - uri: The gs:// URI of the object to sign.
//
// Outputs:
//   - string: The signed HTTPS URL, or the public URL if signing failed.
//   - error: An error if the URI cannot be parsed.
func (c *EpisodeURLSigner) SignURI(ctx goctx.Context, uri string) (string, error) {
	// Already-HTTP references (for example a URL signed upstream) pass
	// through untouched.
	if strings.HasPrefix(uri, "https://") || strings.HasPrefix(uri, "http://") {
		return uri, nil
	}

	obj, err := cloud.ParseGCSURI(uri)
	if err != nil {
		return "", err
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(c.ttl),
		GoogleAccessID: c.signerEmail,
		// SignBytes delegates the actual signature to the IAM Credentials
		// API, so no service account key file is needed on the machine.
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", c.signerEmail),
				Payload: b,
			}
			resp, err := c.iamClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := c.storageClient.Bucket(obj.Bucket).SignedURL(obj.Name, opts)
	if err != nil {
		log.Printf("failed to sign %s, falling back to public url: %v\n", uri, err)
		return PublicURL(obj), nil
	}
	return u, nil
}

// PublicURL returns the unsigned HTTPS URL for a GCS object.
func PublicURL(obj *cloud.GCSObject) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", obj.Bucket, obj.Name)
}
