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

// Package test provides utility functions and mock data to support the
// application's test suite. It helps in setting up a consistent test
// environment, loading test-specific configurations, and providing sample
// requests for workflows and services.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/toonlabs/episode-engine/internal/cloud"
	"github.com/toonlabs/episode-engine/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so the TOML files are parsed once per
// test binary rather than once per test.
type StateManager struct {
	config *cloud.Config
}

// state holds the singleton StateManager for this test run.
var state = &StateManager{}

// HandleErr is a simple test helper that fails the test when err is
// non-nil. It exists to reduce boilerplate error checking in tests.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// GetTestEpisodeRequest returns a fully populated generation request for
// pipeline tests. The character image is a tiny placeholder PNG: real image
// content does not matter to any code path short of the video model itself.
//
// Returns:
//   - A pointer to a model.EpisodeRequest ready to feed a workflow.
func GetTestEpisodeRequest() *model.EpisodeRequest {
	return &model.EpisodeRequest{
		Topic:         "how plants make food",
		StoryStyle:    "curious adventure",
		CharacterName: "Lumi",
		CharacterImage: []byte{
			0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
		},
	}
}

// SetupOS configures the environment variables the configuration loader
// (`cloud.LoadConfig`) depends on, pointing it at the test-specific files.
//
// Returns:
//   - An error if setting any environment variable fails.
func SetupOS() (err error) {
	// Set the directory where the configuration files are located.
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	// Use the ".env.test.toml" overrides for test runs.
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the test configuration. It loads
// the TOML files once and caches the result for subsequent calls. This is
// the primary way tests should retrieve their configuration.
//
// Returns:
//   - A pointer to the loaded and cached cloud.Config struct.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		// LoadConfig handles the hierarchical loading (base file plus the
		// runtime override).
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}
