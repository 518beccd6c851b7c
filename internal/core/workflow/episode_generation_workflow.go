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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the episode generation workflow: the full path from a user's topic to a
// playable, signed, interactive episode.
package workflow

import (
	"strings"
	"text/template"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/commands"
	"github.com/toonlabs/episode-engine/internal/core/cor"
)

// DefaultFfmpegCommand defines the default command to execute FFmpeg.
// It assumes `ffmpeg` is available in the system's PATH.
const DefaultFfmpegCommand = "ffmpeg"

// EpisodeGenerationWorkflow orchestrates the entire process of creating an
// interactive episode. It's structured as a Chain of Responsibility
// (cor.Chain) that executes the pipeline's stages in order: plan the
// episode, expand each scene, validate and repair the result, render the
// video clips, stitch the master, and sign the playback URLs.
//
// The workflow is launched by the episode service in response to an API
// request; one execution handles one episode end to end.
type EpisodeGenerationWorkflow struct {
	cor.BaseCommand
	config            *cloud.Config
	storageClient     *storage.Client
	iamClient         *credentials.IamCredentialsClient
	textModel         *cloud.QuotaAwareGenerativeAIModel
	videoModel        *cloud.QuotaAwareVideoModel
	videoConfig       cloud.VertexAiVideoModel
	numberOfWorkers   int
	ffmpegCommand     string
	planningTemplate  *template.Template
	expansionTemplate *template.Template
	repairTemplate    *template.Template
	chain             cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the entire episode generation workflow by invoking the
// underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution.
func (m *EpisodeGenerationWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// initializeChain builds the sequence of commands that make up this
// workflow. Each command is an atomic unit of work whose output becomes the
// next command's input. This method is called by the constructor.
func (m *EpisodeGenerationWorkflow) initializeChain() {
	// Context key for the decoded episode plan, used to pass the map form of
	// the plan to the expansion stage.
	const EpisodePlanParamName = "__episode_plan__"

	// Shared media helpers for the rendering, stitching, and signing stages.
	ffmpeg := commands.NewFFmpegRunner(m.ffmpegCommand)
	downloader := commands.NewGCSDownloader(m.storageClient, "episode-media-")
	uploader := commands.NewGCSUploader(m.storageClient, m.config.Storage.EpisodeBucket)

	// Create the chain that will hold all the command steps.
	out := cor.NewBaseChain(m.GetName())

	// Step 1: Generate the complete episode plan in one model call. The
	// planner receives the topic, story style, character name, and the
	// reference episode JSON, plus the character image when one was given,
	// and produces the full draft episode as a JSON string.
	out.AddCommand(commands.NewEpisodePlanCreator("create-episode-plan", m.config, m.textModel, m.planningTemplate))

	// Step 2: Decode the plan JSON into its loose map form and stamp the
	// server-assigned episode id onto it. The map form is kept all the way
	// through validation so missing fields stay observable.
	out.AddCommand(commands.NewEpisodeJsonToStruct("decode-episode-plan", EpisodePlanParamName))

	// Step 3: Expand every scene stub into a full production scene. Scenes
	// are independent given the episode context, so this runs on a worker
	// pool, with interactive scenes getting deeper reasoning effort.
	out.AddCommand(commands.NewSceneExpander("expand-episode-scenes", m.textModel, m.expansionTemplate, m.numberOfWorkers))

	// Step 4: Validate the expanded episode against the schema contract and
	// repair violations with the model, bounded by a fixed attempt budget.
	// On success the episode document is also published under its well-known
	// context key for the signing stage.
	repair := commands.NewEpisodeRepairLoop("validate-and-repair-episode", m.textModel, m.repairTemplate)
	repair.BaseCommand.OutputParamName = commands.GetEpisodeDocName()
	out.AddCommand(repair)

	// Step 5: Render all video clips through Veo: one main clip per scene,
	// plus the feedback pair and idle loop for each interactive scene.
	out.AddCommand(commands.NewSceneVideoGenerator("render-scene-videos", m.config, m.videoModel, m.videoConfig, downloader, ffmpeg))

	// Step 6: Stitch the main scene clips, in order, into the episode
	// master and upload it to the episode's canonical object.
	out.AddCommand(commands.NewEpisodeStitcher("stitch-episode", downloader, uploader, ffmpeg))

	// Step 7: Sign every clip the episode references so the client can
	// stream directly from GCS, and write the URLs into the document.
	out.AddCommand(commands.NewEpisodeURLSigner(
		"sign-episode-urls",
		m.storageClient,
		m.iamClient,
		m.config.Application.SignerServiceAccountEmail,
		time.Duration(m.config.Storage.SignedURLTTLHours)*time.Hour))

	// Assign the fully constructed chain to the workflow instance.
	m.chain = out
}

// NewEpisodeGenerationPipeline is the constructor for the
// EpisodeGenerationWorkflow. It sets up all dependencies, compiles the
// prompt templates, and initializes the command chain.
//
// Inputs:
//   - config: The application's overall configuration.
//   - serviceClients: A struct containing initialized clients for GCP services.
//   - agentModelName: The name of the Vertex AI text model config to use (e.g., "episode-writer").
//   - videoModelName: The name of the Veo model config to use (e.g., "scene-renderer").
//   - ffmpegCommand: The path to the FFmpeg executable. If empty, a default is used.
//
// Returns:
//   - A pointer to a newly created and fully initialized EpisodeGenerationWorkflow.
func NewEpisodeGenerationPipeline(
	config *cloud.Config,
	serviceClients *cloud.ServiceClients,
	agentModelName string,
	videoModelName string,
	ffmpegCommand string) *EpisodeGenerationWorkflow {

	if len(strings.Trim(ffmpegCommand, " ")) == 0 {
		ffmpegCommand = DefaultFfmpegCommand
	}

	// Parse the three stage templates from the configuration file. Panic on
	// failure, as the app cannot run without valid templates.
	planningTemplate, err := template.New("planning-template").Parse(config.PromptTemplates.PlanningPrompt)
	if err != nil {
		panic(err)
	}
	expansionTemplate, err := template.New("expansion-template").Parse(config.PromptTemplates.ExpansionPrompt)
	if err != nil {
		panic(err)
	}
	repairTemplate, err := template.New("repair-template").Parse(config.PromptTemplates.RepairPrompt)
	if err != nil {
		panic(err)
	}

	// Create the EpisodeGenerationWorkflow instance with all its dependencies.
	pipeline := &EpisodeGenerationWorkflow{
		BaseCommand:       *cor.NewBaseCommand("episode-generation-pipeline"),
		config:            config,
		storageClient:     serviceClients.StorageClient,
		iamClient:         serviceClients.IAMClient,
		textModel:         serviceClients.AgentModels[agentModelName],
		videoModel:        serviceClients.VideoModels[videoModelName],
		videoConfig:       config.VideoModels[videoModelName],
		numberOfWorkers:   config.Application.ThreadPoolSize,
		ffmpegCommand:     ffmpegCommand,
		planningTemplate:  planningTemplate,
		expansionTemplate: expansionTemplate,
		repairTemplate:    repairTemplate,
	}
	// Build the command chain for the new pipeline instance.
	pipeline.initializeChain()
	return pipeline
}
