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
// This file implements wrappers around the Generative AI clients using the
// Decorator design pattern: extra behavior is added to an existing client
// without altering its code. Specifically, it adds rate limiting, a retry
// mechanism, and per-call reasoning effort selection.
//
// Why this is important:
//   - Rate Limiting: Services like Vertex AI have quotas on how many requests
//     you can make per minute. These wrappers prevent the application from
//     exceeding those limits, which would otherwise result in errors.
//   - Retry Logic: Network requests can sometimes fail for transient reasons.
//     The wrappers automatically retry a failed request, making the application
//     more resilient and reliable.
//   - Thinking Modes: Episode planning and quiz design need deep reasoning,
//     while narrative scene polish does not. The text wrapper maps a per-call
//     mode onto the model's thinking budget so callers never touch raw config.
//
// Interfaces:
//   - TextGenerator: The narrow surface the pipeline commands depend on for text.
//   - VideoGenerator: The narrow surface the media engine depends on for video.
//
// Structs:
//   - QuotaAwareGenerativeAIModel: Rate-limited, retrying TextGenerator.
//   - QuotaAwareVideoModel: Rate-limited VideoGenerator over Veo long-running operations.
package cloud

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ThinkingMode selects the reasoning effort for a single text generation
// call. The concrete token budget behind each mode is model configuration.
type ThinkingMode string

const (
	// ThinkingHigh buys deep reasoning. Used for episode planning, quiz
	// design on interactive scenes, and schema repair.
	ThinkingHigh ThinkingMode = "high"
	// ThinkingLow is cheap and fast. Used for narrative scene polish where
	// no pedagogical decisions are being made.
	ThinkingLow ThinkingMode = "low"
)

// TextGenerator is the single seam between the pipeline commands and the
// underlying text model. Tests substitute a scripted fake here.
type TextGenerator interface {
	GenerateContent(ctx context.Context, content []*genai.Content, mode ThinkingMode) (*genai.GenerateContentResponse, error)
}

// VideoGenerator is the seam between the media engine and Veo. Submitting
// returns a long-running operation; polling refreshes it until Done.
type VideoGenerator interface {
	GenerateVideos(ctx context.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

// retryKey is the context key that threads the attempt count through the
// retry recursion.
type retryKey struct{}

// QuotaAwareGenerativeAIModel is a decorator that fronts the Vertex AI text
// model with a rate limiter and retry loop, and applies the configured
// thinking budget for the caller's chosen mode on every request.
type QuotaAwareGenerativeAIModel struct {
	GenerativeContentConfig *genai.GenerateContentConfig // The base request config shared by all calls.
	ModelName               string
	ModelHandle             *genai.Models
	HighThinkingBudget      int32
	LowThinkingBudget       int32
	RateLimit               rate.Limiter // Controls request frequency against the Vertex AI quota.
}

// NewQuotaAwareModel is a constructor function that creates a new
// QuotaAwareGenerativeAIModel. It takes the base request config, the model
// name and handle, the thinking budgets for the two modes, and a rate limit
// in requests per second.
//
// Outputs:
//   - *QuotaAwareGenerativeAIModel: A pointer to the newly created wrapper.
func NewQuotaAwareModel(wrapped *genai.GenerateContentConfig, name string, modelHandle *genai.Models, highBudget int32, lowBudget int32, requestsPerSecond int) *QuotaAwareGenerativeAIModel {
	return &QuotaAwareGenerativeAIModel{
		GenerativeContentConfig: wrapped,
		ModelName:               name,
		ModelHandle:             modelHandle,
		HighThinkingBudget:      highBudget,
		LowThinkingBudget:       lowBudget,
		// Creates a new rate limiter that allows a burst of `requestsPerSecond`
		// events and replenishes the token bucket at 1 token per second.
		RateLimit: *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// configForMode clones the base request config and installs the thinking
// budget for the requested mode. The base config is never mutated because
// concurrent scene expansions share it.
func (q *QuotaAwareGenerativeAIModel) configForMode(mode ThinkingMode) *genai.GenerateContentConfig {
	cfg := *q.GenerativeContentConfig
	budget := q.LowThinkingBudget
	if mode == ThinkingHigh {
		budget = q.HighThinkingBudget
	}
	b := budget
	cfg.ThinkingConfig = &genai.ThinkingConfig{
		IncludeThoughts: false,
		ThinkingBudget:  &b,
	}
	return &cfg
}

// GenerateContent implements TextGenerator with rate limiting and retries.
//
// Logic Flow:
//  1. Check the rate limiter.
//  2. If a request is allowed:
//     a. Call the underlying model with the mode-specific config.
//     b. If it fails, check the retry count stored on the context.
//     c. If retries are available, wait and recursively call itself.
//     d. If no retries are left, return the error.
//  3. If a request is NOT allowed (rate-limited):
//     a. Wait for a short period.
//     b. Recursively call itself to re-queue the request.
//
// Inputs:
//   - ctx: The context for the request. It also carries retry state.
//   - content: The parts of the multi-modal prompt (text, images, etc.).
//   - mode: The reasoning effort to apply to this call.
//
// Outputs:
//   - *genai.GenerateContentResponse: The response from the AI model if successful.
//   - error: An error if the request fails after all retries.
func (q *QuotaAwareGenerativeAIModel) GenerateContent(ctx context.Context, content []*genai.Content, mode ThinkingMode) (resp *genai.GenerateContentResponse, err error) {
	// The `Allow()` method checks if an event can happen now without blocking.
	if !q.RateLimit.Allow() {
		// Rate-limited. Pause this request, then try for a token again.
		time.Sleep(time.Second * 5)
		return q.GenerateContent(ctx, content, mode)
	}

	resp, err = q.ModelHandle.GenerateContent(ctx, q.ModelName, content, q.configForMode(mode))
	if err != nil {
		// Get the current retry count from the context. `Value()` returns an
		// interface{}, so we must type-assert it to an `int`.
		retryCount, ok := ctx.Value(retryKey{}).(int)
		if !ok {
			// This is the first attempt.
			retryCount = 0
		}
		if retryCount > 3 {
			return nil, errors.New("failed generation on max retries")
		}
		errCtx := context.WithValue(ctx, retryKey{}, retryCount+1)
		// Wait before retrying to give the service time to recover.
		time.Sleep(time.Minute * 1)
		return q.GenerateContent(errCtx, content, mode)
	}
	return resp, err
}

// QuotaAwareVideoModel fronts the Veo model with a rate limiter. Submission
// is rate limited; polling is not, since operation reads are cheap and have
// separate quota.
type QuotaAwareVideoModel struct {
	ModelName        string
	ModelHandle      *genai.Models
	OperationsHandle *genai.Operations
	RateLimit        rate.Limiter
}

// NewQuotaAwareVideoModel creates a rate-limited wrapper around the Veo
// model and its long-running operation poller.
func NewQuotaAwareVideoModel(name string, modelHandle *genai.Models, operationsHandle *genai.Operations, requestsPerSecond int) *QuotaAwareVideoModel {
	return &QuotaAwareVideoModel{
		ModelName:        name,
		ModelHandle:      modelHandle,
		OperationsHandle: operationsHandle,
		RateLimit:        *rate.NewLimiter(rate.Every(time.Second/1), requestsPerSecond),
	}
}

// GenerateVideos submits one video generation request and returns the
// long-running operation handle. Blocks on the rate limiter rather than
// spinning, because video submissions are far slower than their quota.
func (q *QuotaAwareVideoModel) GenerateVideos(ctx context.Context, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return nil, err
	}
	return q.ModelHandle.GenerateVideos(ctx, q.ModelName, prompt, image, config)
}

// GetVideosOperation refreshes the state of a long-running video operation.
func (q *QuotaAwareVideoModel) GetVideosOperation(ctx context.Context, operation *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return q.OperationsHandle.GetVideosOperation(ctx, operation, nil)
}
