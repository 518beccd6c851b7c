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
// stitching stage, which concatenates the rendered main scene clips into a
// single episode master.
//
// Logic Flow:
//  1. Download each scene's main clip to local disk, in scene order.
//  2. Concatenate them with FFmpeg's concat demuxer in stream-copy mode.
//     Only main clips are stitched; feedback and idle clips stay as
//     standalone branches the player switches to at interaction points.
//  3. Upload the stitched file to the episode's canonical master object.
//
// The downloaded clips and the stitched file are registered as workflow
// temp files so the chain's cleanup pass removes them.
package commands

import (
	"fmt"
	"os"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
)

// EpisodeStitcher is a command that assembles the episode master from the
// rendered scene clips.
type EpisodeStitcher struct {
	cor.BaseCommand
	downloader *GCSDownloader
	uploader   *GCSUploader
	ffmpeg     *FFmpegRunner
}

// NewEpisodeStitcher is the constructor for the EpisodeStitcher command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - downloader: Helper for pulling rendered clips to local disk.
//   - uploader: Helper for pushing the stitched master back to GCS.
//   - ffmpeg: The FFmpeg wrapper used for concatenation.
//
// Outputs:
//   - *EpisodeStitcher: A pointer to the newly instantiated command.
func NewEpisodeStitcher(
	name string,
	downloader *GCSDownloader,
	uploader *GCSUploader,
	ffmpeg *FFmpegRunner) *EpisodeStitcher {
	return &EpisodeStitcher{
		BaseCommand: *cor.NewBaseCommand(name),
		downloader:  downloader,
		uploader:    uploader,
		ffmpeg:      ffmpeg}
}

// Execute downloads the main clips in scene order, stitches them, and
// uploads the result.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (c *EpisodeStitcher) Execute(context cor.Context) {
	media := context.Get(c.GetInputParam()).(*model.EpisodeMediaResult)
	episodeID := context.Get(GetEpisodeIdName()).(string)

	clipPaths := make([]string, 0, len(media.Scenes))
	for _, scene := range media.Scenes {
		obj, err := cloud.ParseGCSURI(scene.VideoURI)
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("scene %d has an unusable clip uri: %w", scene.SceneNumber, err))
			return
		}
		path, err := c.downloader.DownloadToTemp(context.GetContext(), obj, ".mp4")
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), err)
			return
		}
		context.AddTempFile(path)
		clipPaths = append(clipPaths, path)
	}

	stitched, err := os.CreateTemp("", TempFilePrefix+"*.mp4")
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	if err := stitched.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}
	context.AddTempFile(stitched.Name())

	if err := c.ffmpeg.Stitch(clipPaths, stitched.Name()); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to stitch episode %s: %w", episodeID, err))
		return
	}

	uri, err := c.uploader.Upload(context.GetContext(), stitched.Name(), cloud.EpisodeObjectName(episodeID))
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	media.StitchedURI = uri
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), media)
	context.Add(cor.CtxOut, media)
}
