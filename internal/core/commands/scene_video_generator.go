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
// media generation stage, which turns a validated episode document into
// rendered video clips via Veo.
//
// Logic Flow:
// Scene rendering dominates the pipeline's wall-clock time, so scenes are
// fanned out to a worker pool bounded by the configured concurrent render
// cap. Each worker:
//
//  1. Composes the final Veo prompt for its scene (visual description plus
//     the global style, dialogue, and voice policy text).
//  2. Submits a generation request with the character reference image
//     attached as an asset reference, so the character looks the same in
//     every scene, and polls the long-running operation until Done.
//  3. For interactive scenes only, renders the three extra clips the
//     interaction layer needs: a correct and an incorrect feedback reaction
//     (with audio, fixed spoken lines) and a silent idle loop. All three are
//     conditioned on a frame extracted near the end of the main clip so they
//     continue seamlessly from where the scene paused.
//
// Results are reassembled in scene order into an EpisodeMediaResult, which
// the stitching stage consumes. Any scene failure fails the episode; there
// is no partial-episode output.
package commands

import (
	goctx "context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/cor"
	"github.com/toonlabs/episode-engine/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// SceneVideoGenerator is a command that renders all of an episode's video
// clips through Veo using a bounded worker pool.
type SceneVideoGenerator struct {
	cor.BaseCommand
	config        *cloud.Config
	videoModel    cloud.VideoGenerator     // The rate-limited Veo client.
	videoConfig   cloud.VertexAiVideoModel // Durations, aspect ratio, and polling cadence.
	downloader    *GCSDownloader           // Pulls main clips down for frame extraction.
	ffmpeg        *FFmpegRunner            // Extracts the idle conditioning frame.
	renderCounter metric.Int64Counter      // OTel counter for submitted render operations.
}

// NewSceneVideoGenerator is the constructor for the SceneVideoGenerator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - config: The application configuration (policy prompts, bucket layout).
//   - videoModel: The client for the Veo video model.
//   - videoConfig: The model configuration for durations and polling.
//   - downloader: Helper for pulling rendered clips to local disk.
//   - ffmpeg: Helper for extracting the idle conditioning frame.
//
// Outputs:
//   - *SceneVideoGenerator: A pointer to the newly instantiated command.
func NewSceneVideoGenerator(
	name string,
	config *cloud.Config,
	videoModel cloud.VideoGenerator,
	videoConfig cloud.VertexAiVideoModel,
	downloader *GCSDownloader,
	ffmpeg *FFmpegRunner) *SceneVideoGenerator {
	out := &SceneVideoGenerator{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		videoModel:  videoModel,
		videoConfig: videoConfig,
		downloader:  downloader,
		ffmpeg:      ffmpeg}

	out.renderCounter, _ = out.GetMeter().Int64Counter(fmt.Sprintf("%s.veo.renders", out.GetName()))

	return out
}

// Execute fans the episode's scenes out to render workers and reassembles
// the results in scene order.
//
// Inputs:
//   - context: The shared `cor.Context` for this workflow execution.
func (s *SceneVideoGenerator) Execute(context cor.Context) {
	episode := context.Get(s.GetInputParam()).(*model.EpisodeDocument)
	episodeID := context.Get(GetEpisodeIdName()).(string)

	// The character reference image rides along on every main scene request
	// as an asset reference, which preserves the character's appearance
	// without dictating composition.
	var reference *genai.VideoGenerationReferenceImage
	if request, ok := context.Get(GetEpisodeRequestName()).(*model.EpisodeRequest); ok && len(request.CharacterImage) > 0 {
		reference = &genai.VideoGenerationReferenceImage{
			Image:         &genai.Image{ImageBytes: request.CharacterImage, MIMEType: "image/png"},
			ReferenceType: genai.VideoGenerationReferenceTypeAsset,
		}
	}

	workers := s.videoConfig.MaxConcurrentRenders
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan *renderJob, len(episode.Scenes))
	results := make(chan *renderResult, len(episode.Scenes))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go s.renderWorker(jobs, results, &wg)
	}

	for i, scene := range episode.Scenes {
		jobs <- s.createRenderJob(context.GetContext(), i, scene, episodeID, reference)
	}

	close(jobs)
	wg.Wait()
	close(results)

	ordered := make([]*model.SceneMediaResult, len(episode.Scenes))
	for r := range results {
		if r.err != nil {
			s.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(s.GetName(), r.err)
			continue
		}
		ordered[r.index] = r.media
	}
	if context.HasErrors() {
		return
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	out := &model.EpisodeMediaResult{Scenes: ordered}
	context.Add(s.GetOutputParam(), out)
	context.Add(cor.CtxOut, out)
}

// renderResult carries one scene's rendered clip set (or an error) back
// from a worker.
type renderResult struct {
	index int
	media *model.SceneMediaResult
	err   error
}

// renderJob packages everything one worker needs to render one scene.
type renderJob struct {
	index     int
	scene     *model.Scene
	episodeID string
	reference *genai.VideoGenerationReferenceImage
	ctx       goctx.Context
	span      trace.Span
}

// Close ends the OpenTelemetry span associated with this job.
func (j *renderJob) Close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// createRenderJob opens a span for one scene and packages its render work.
func (s *SceneVideoGenerator) createRenderJob(ctx goctx.Context, index int, scene *model.Scene, episodeID string, reference *genai.VideoGenerationReferenceImage) *renderJob {
	sceneCtx, sceneSpan := s.Tracer.Start(ctx, fmt.Sprintf("%s_veo_scene_%d", s.GetName(), scene.SceneNumber))
	sceneSpan.SetAttributes(
		attribute.Int("scene_number", scene.SceneNumber),
		attribute.Bool("interactive", scene.Interaction),
	)
	return &renderJob{
		index:     index,
		scene:     scene,
		episodeID: episodeID,
		reference: reference,
		ctx:       sceneCtx,
		span:      sceneSpan,
	}
}

// renderWorker pulls jobs until the channel closes, rendering each scene's
// full clip set.
func (s *SceneVideoGenerator) renderWorker(jobs <-chan *renderJob, results chan<- *renderResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		media, err := s.renderScene(j)
		if err != nil {
			j.Close(codes.Error, "scene render failed")
			results <- &renderResult{index: j.index, err: fmt.Errorf("scene %d: %w", j.scene.SceneNumber, err)}
			continue
		}
		results <- &renderResult{index: j.index, media: media}
		j.Close(codes.Ok, "completed scene render")
	}
}

// renderScene renders the main clip for one scene and, for interactive
// scenes, the feedback and idle clips conditioned on the main clip's
// closing frame.
func (s *SceneVideoGenerator) renderScene(j *renderJob) (*model.SceneMediaResult, error) {
	policy := s.config.PolicyPrompts
	bucket := s.config.Storage.EpisodeBucket

	mainConfig := &genai.GenerateVideosConfig{
		AspectRatio:     s.videoConfig.AspectRatio,
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(s.videoConfig.SceneDurationSeconds),
		GenerateAudio:   genai.Ptr(s.videoConfig.GenerateAudio),
		NegativePrompt:  policy.NegativePrompt,
		OutputGCSURI:    cloud.SceneOutputPrefix(bucket, j.episodeID),
	}
	if j.reference != nil {
		mainConfig.ReferenceImages = []*genai.VideoGenerationReferenceImage{j.reference}
	}

	prompt := BuildScenePrompt(j.scene.Prompt, j.scene.Dialogue, policy)
	mainURI, err := s.renderClip(j.ctx, prompt, nil, mainConfig)
	if err != nil {
		return nil, err
	}

	media := &model.SceneMediaResult{SceneNumber: j.scene.SceneNumber, VideoURI: mainURI}
	if !j.scene.Interaction {
		return media, nil
	}

	// Interactive scene: the feedback and idle clips must continue visually
	// from the moment the episode pauses, so they are conditioned on a frame
	// taken just before the main clip's end.
	frame, err := s.extractClosingFrame(j.ctx, mainURI)
	if err != nil {
		return nil, err
	}

	feedbackConfig := &genai.GenerateVideosConfig{
		AspectRatio:     s.videoConfig.AspectRatio,
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(s.videoConfig.FeedbackDurationSeconds),
		GenerateAudio:   genai.Ptr(true),
		NegativePrompt:  FeedbackNegativePrompt(policy),
		OutputGCSURI:    cloud.FeedbackOutputPrefix(bucket, j.episodeID, j.scene.SceneNumber),
	}
	media.CorrectFeedbackURI, err = s.renderClip(j.ctx, FeedbackCorrectPrompt, frame, feedbackConfig)
	if err != nil {
		return nil, err
	}
	media.IncorrectFeedbackURI, err = s.renderClip(j.ctx, FeedbackIncorrectPrompt, frame, feedbackConfig)
	if err != nil {
		return nil, err
	}

	idleConfig := &genai.GenerateVideosConfig{
		AspectRatio:     s.videoConfig.AspectRatio,
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(s.videoConfig.IdleDurationSeconds),
		GenerateAudio:   genai.Ptr(false),
		NegativePrompt:  IdleNegativePrompt(policy),
		OutputGCSURI:    cloud.IdleOutputPrefix(bucket, j.episodeID, j.scene.SceneNumber),
	}
	media.IdleURI, err = s.renderClip(j.ctx, IdlePrompt, frame, idleConfig)
	if err != nil {
		return nil, err
	}

	return media, nil
}

// renderClip submits one video generation request, polls the long-running
// operation to completion, and returns the gs:// URI of the rendered clip.
func (s *SceneVideoGenerator) renderClip(ctx goctx.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (string, error) {
	s.renderCounter.Add(ctx, 1)

	operation, err := s.videoModel.GenerateVideos(ctx, prompt, image, config)
	if err != nil {
		return "", fmt.Errorf("failed to submit video generation: %w", err)
	}

	pollInterval := time.Duration(s.videoConfig.PollIntervalSeconds) * time.Second
	deadline := time.Now().Add(time.Duration(s.videoConfig.PollTimeoutMinutes) * time.Minute)

	for !operation.Done {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("video operation %s timed out after %d minutes", operation.Name, s.videoConfig.PollTimeoutMinutes)
		}
		time.Sleep(pollInterval)
		operation, err = s.videoModel.GetVideosOperation(ctx, operation)
		if err != nil {
			return "", fmt.Errorf("failed to poll video operation: %w", err)
		}
	}

	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 {
		return "", fmt.Errorf("video operation %s completed without a generated video", operation.Name)
	}
	video := operation.Response.GeneratedVideos[0].Video
	if video == nil || video.URI == "" {
		return "", fmt.Errorf("video operation %s returned no output uri", operation.Name)
	}
	return video.URI, nil
}

// extractClosingFrame downloads a rendered clip, grabs a frame just before
// its end, and returns it as an image ready for conditioning.
func (s *SceneVideoGenerator) extractClosingFrame(ctx goctx.Context, clipURI string) (*genai.Image, error) {
	obj, err := cloud.ParseGCSURI(clipURI)
	if err != nil {
		return nil, err
	}

	clipPath, err := s.downloader.DownloadToTemp(ctx, obj, ".mp4")
	if err != nil {
		return nil, err
	}
	defer os.Remove(clipPath)

	framePath := clipPath + ".png"
	if err := s.ffmpeg.ExtractLastFrame(clipPath, framePath, s.videoConfig.IdleFrameOffsetSeconds); err != nil {
		return nil, fmt.Errorf("failed to extract closing frame: %w", err)
	}
	defer os.Remove(framePath)

	frameBytes, err := os.ReadFile(framePath)
	if err != nil {
		return nil, err
	}
	return &genai.Image{ImageBytes: frameBytes, MIMEType: "image/png"}, nil
}
