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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for Google Cloud services, the generative text and video models, prompt
// templates, and the content policy text applied to every video request.
//
// This file centralizes all configuration-related structs, making it easy
// to understand and manage the application's configurable parameters.
//
// Structs:
//   - PromptTemplates: Holds the text templates for prompts sent to GenAI models.
//   - PolicyPrompts: Global style, voice, and negative prompt text for video generation.
//   - VertexAiLLMModel: Configuration for a Vertex AI text model with thinking budgets.
//   - VertexAiVideoModel: Configuration for the Veo video generation model.
//   - Storage: Configuration for Google Cloud Storage buckets.
//   - Config: The top-level struct that aggregates all other configuration structs.
//
// Functions:
//   - NewConfig: A constructor that initializes a new Config object with empty maps.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// These settings are configured to be non-restrictive, allowing all content categories
// (Dangerous Content, Harassment, Hate Speech, Sexually Explicit) to pass through without
// being blocked. Content safety for this application is enforced upstream through the
// prompt-level content policy, which forbids unsafe themes before a request is ever made.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// PromptTemplates holds the text/template sources for the three generation
// stages. Each template is executed against a stage-specific parameter
// struct before being sent to the text model.
type PromptTemplates struct {
	PlanningPrompt  string `toml:"planning"`  // The template for the full-episode planning stage.
	ExpansionPrompt string `toml:"expansion"` // The template for per-scene expansion.
	RepairPrompt    string `toml:"repair"`    // The template for schema repair after validation failure.
}

// PolicyPrompts carries the global policy text appended to every video
// generation request. These strings are policy, not style preference: the
// negative prompt keeps clips free of text overlays and frightening content,
// and the voice prompt pins the character's voice so it does not drift
// between scenes.
type PolicyPrompts struct {
	GlobalStyle    string `toml:"global_style"`    // Character-consistency and visual style rules appended to every scene prompt.
	GlobalVoice    string `toml:"global_voice"`    // Voice style rules appended whenever a scene has spoken dialogue.
	NegativePrompt string `toml:"negative_prompt"` // Baseline negative prompt for every clip.
	SilenceSuffix  string `toml:"silence_suffix"`  // Extra negative terms for clips that must contain no speech.
}

// VertexAiLLMModel represents the configuration for a Vertex AI text model.
// The two thinking budgets implement the tiered reasoning strategy: deep
// reasoning where pedagogy is decided, shallow reasoning where it is not.
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`                // The name of the Vertex AI model.
	SystemInstructions string  `toml:"system_instructions"`  // The system instructions for the model.
	Temperature        float32 `toml:"temperature"`          // The temperature parameter.
	TopP               float32 `toml:"top_p"`                // The top_p parameter.
	MaxTokens          int32   `toml:"max_tokens"`           // The maximum number of output tokens.
	OutputFormat       string  `toml:"output_format"`        // The desired output MIME type, e.g. "application/json".
	HighThinkingBudget int32   `toml:"high_thinking_budget"` // Token budget for HIGH reasoning effort calls.
	LowThinkingBudget  int32   `toml:"low_thinking_budget"`  // Token budget for LOW reasoning effort calls.
	RateLimit          int     `toml:"rate_limit"`           // The rate limit in requests per second.
}

// VertexAiVideoModel represents the configuration for the Veo video model.
// Durations are per clip type: main narrative clips run longer than the
// short feedback reactions and idle loops.
type VertexAiVideoModel struct {
	Model                   string  `toml:"model"`                     // The name of the Veo model.
	AspectRatio             string  `toml:"aspect_ratio"`              // Output aspect ratio, e.g. "16:9".
	SceneDurationSeconds    int32   `toml:"scene_duration_seconds"`    // Duration of a main scene clip.
	FeedbackDurationSeconds int32   `toml:"feedback_duration_seconds"` // Duration of a correct/incorrect feedback clip.
	IdleDurationSeconds     int32   `toml:"idle_duration_seconds"`     // Duration of an idle loop clip.
	GenerateAudio           bool    `toml:"generate_audio"`            // Whether the model should produce an audio track.
	PollIntervalSeconds     int     `toml:"poll_interval_seconds"`     // How often to poll a long-running video operation.
	PollTimeoutMinutes      int     `toml:"poll_timeout_minutes"`      // Upper bound on waiting for a single video operation.
	RateLimit               int     `toml:"rate_limit"`                // The rate limit in requests per second.
	MaxConcurrentRenders    int     `toml:"max_concurrent_renders"`    // Cap on simultaneous in-flight video operations.
	IdleFrameOffsetSeconds  float64 `toml:"idle_frame_offset_seconds"` // How far before a clip's end to grab the idle conditioning frame.
}

// Storage represents the configuration for storage buckets.
type Storage struct {
	EpisodeBucket     string `toml:"episode_bucket"`       // The bucket that holds rendered scene clips and stitched episodes.
	SignedURLTTLHours int    `toml:"signed_url_ttl_hours"` // Lifetime of V4 signed URLs handed to clients.
}

// Config represents the overall configuration for the application, loaded from TOML files.
// It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The size of the worker pool for parallel scene processing.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
		VoiceAgentEndpoint        string `toml:"voice_agent_endpoint"`         // Upstream websocket endpoint for the live voice agent.
	} `toml:"application"`
	Storage         Storage                       `toml:"storage"`          // Storage configuration.
	PromptTemplates PromptTemplates               `toml:"prompt_templates"` // Prompt templates configuration.
	PolicyPrompts   PolicyPrompts                 `toml:"policy_prompts"`   // Global video policy text.
	AgentModels     map[string]VertexAiLLMModel   `toml:"agent_models"`     // A map of Vertex AI text models, keyed by a logical name (e.g., "episode-writer").
	VideoModels     map[string]VertexAiVideoModel `toml:"video_models"`     // A map of Veo models, keyed by a logical name (e.g., "scene-renderer").
}

// NewConfig is a constructor function that creates a new, initialized Config instance.
// It's important to initialize the maps within the struct to avoid nil pointer panics
// when the configuration loader tries to populate them.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	return &Config{
		AgentModels: make(map[string]VertexAiLLMModel),
		VideoModels: make(map[string]VertexAiVideoModel),
	}
}
