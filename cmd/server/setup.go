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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/services"
	"github.com/toonlabs/episode-engine/internal/core/workflow"
)

// Logical names of the model configurations this server uses. They key into
// the agent_models and video_models tables of the TOML config.
const (
	TextModelName  = "episode-writer"
	VideoModelName = "scene-renderer"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config         *cloud.Config
	cloud          *cloud.ServiceClients
	episodeService *services.EpisodeService
	voiceProxy     *services.VoiceAgentProxy
}

var state = &StateManager{}

func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup os: %v\n", err)
		}
		// Create a default cloud config
		config := cloud.NewConfig()
		// Load it from the TOML files
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds the service clients, the generation pipeline, and the
// services the HTTP routes depend on.
func InitState(ctx context.Context) {
	// Get the config file
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	pipeline := workflow.NewEpisodeGenerationPipeline(config, cloudClients, TextModelName, VideoModelName, "")

	state.episodeService = services.NewEpisodeService(pipeline, slog.Default())
	state.voiceProxy = services.NewVoiceAgentProxy(config.Application.VoiceAgentEndpoint, slog.Default())
}
