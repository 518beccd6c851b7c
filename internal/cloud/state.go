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

// Package cloud provides components for interacting with Google Cloud services.
// This file is central to the application's architecture, as it's responsible for
// initializing and holding all the client objects needed to communicate with
// various Google Cloud services. It acts as a dependency injection container,
// creating a single, shared `ServiceClients` struct that can be passed throughout
// the application.
//
// Logic Flow:
//  1. The `NewCloudServiceClients` function is called at application startup.
//  2. It takes the application's configuration (`Config`) and a `context.Context`.
//  3. It initializes clients for Storage, GenAI, and IAM credentials.
//  4. It then reads the configuration to create the quota-aware text and video
//     model wrappers, storing them in maps keyed by their logical names.
//  5. All initialized clients and services are bundled into a single `ServiceClients` struct.
//  6. This struct is then used by other parts of the application (like API handlers and workflows)
//     to perform their tasks.
//
// Structs:
//   - ServiceClients: A container struct holding all initialized Google Cloud service clients
//     and service wrappers, acting as a central state manager for external connections.
//
// Functions:
//   - Close: A convenience method to gracefully shut down all client connections.
//   - NewCloudServiceClients: A factory function that creates and configures all necessary
//     Google Cloud clients based on the application's configuration.
package cloud

import (
	"context"
	"log"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is a struct that acts as a central container for all the clients
// that interact with external Google Cloud services. This pattern is a form of
// dependency injection, making it easy to manage and share these client connections
// across the entire application.
type ServiceClients struct {
	StorageClient *storage.Client                         // Client for Google Cloud Storage (GCS).
	GenAIClient   *genai.Client                           // Client for Google's Generative AI services (Vertex AI).
	IAMClient     *credentials.IamCredentialsClient       // Client for IAM credentials, used to sign GCS URLs.
	AgentModels   map[string]*QuotaAwareGenerativeAIModel // Configured text models, keyed by logical name (e.g. "episode-writer").
	VideoModels   map[string]*QuotaAwareVideoModel        // Configured Veo models, keyed by logical name (e.g. "scene-renderer").
}

// Close is a utility method to gracefully shut down all the active client connections.
// While client connections are typically managed by the application's root context,
// this method provides an explicit way to release resources, which is especially
// useful in tests or for controlled shutdowns.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.IAMClient.Close()
	//TODO: New genai library does not have a client close function
}

// NewCloudServiceClients is a factory function that initializes all required Google Cloud
// service clients based on the provided configuration. It serves as the main entry point
// for setting up the application's external dependencies.
//
// Inputs:
//   - ctx: The root context.Context for the application, used to manage the lifecycle of the clients.
//   - config: A pointer to the loaded application configuration (`Config`).
//
// Outputs:
//   - *ServiceClients: A pointer to the fully initialized ServiceClients struct.
//   - error: An error if any of the clients fail to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	// Create a new Google Cloud Storage client.
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	// Create a new Generative AI client against the Vertex AI backend.
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		log.Printf("error creating genai client: %v", err)
		return nil, err
	}

	// Create the IAM credentials client used to produce V4 signed URLs via
	// the SignBlob API, so no private key file is needed at runtime.
	ic, err := credentials.NewIamCredentialsClient(ctx)
	if err != nil {
		return nil, err
	}

	// Iterate through the agent model configurations, build the base request
	// config for each (temperature, system instructions, output format), and
	// wrap it in our custom rate-limiting (`QuotaAware`) model.
	agentModels := make(map[string]*QuotaAwareGenerativeAIModel)
	for amKey := range config.AgentModels {
		values := config.AgentModels[amKey]

		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
			Tools:             []*genai.Tool{},
		}
		wrappedAgent := NewQuotaAwareModel(
			model,
			values.Model,
			gc.Models,
			values.HighThinkingBudget,
			values.LowThinkingBudget,
			values.RateLimit)
		agentModels[amKey] = wrappedAgent
	}

	// Wrap each configured Veo model the same way.
	videoModels := make(map[string]*QuotaAwareVideoModel)
	for vmKey := range config.VideoModels {
		values := config.VideoModels[vmKey]
		videoModels[vmKey] = NewQuotaAwareVideoModel(values.Model, gc.Models, gc.Operations, values.RateLimit)
	}

	// Assemble the final ServiceClients struct with all the initialized clients and models.
	cloud = &ServiceClients{
		StorageClient: sc,
		GenAIClient:   gc,
		IAMClient:     ic,
		AgentModels:   agentModels,
		VideoModels:   videoModels,
	}

	return cloud, err
}
