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
	"encoding/base64"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/toonlabs/episode-engine/internal/core/model"
	"github.com/toonlabs/episode-engine/internal/telemetry"
)

func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Add OpenTelemetry middleware
	r.Use(otelgin.Middleware("episode-engine-server"))

	// **Use a default, more robust CORS configuration for development**
	// This allows all origins, methods, and headers, which is safe for local dev
	// and fixes potential communication issues between the frontend and backend.
	r.Use(cors.Default())

	EpisodeRouter(r)
	VoiceAgentRouter(r)

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	// Start the server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	// Wait for an interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// EpisodeRouter sets up the routes for launching and polling episode
// generation jobs.
func EpisodeRouter(r *gin.Engine) {
	// Launch a generation job. The endpoint itself never fails with a
	// non-200 status: bad input comes back as success=false, and every
	// generation-time failure is reported through the status endpoint.
	r.POST("/generate-episode", func(c *gin.Context) {
		topic := c.PostForm("episode_topic")
		storyStyle := c.PostForm("story_style")
		characterName := c.PostForm("character_name")
		characterImageB64 := c.PostForm("character_image_base64")

		if topic == "" || storyStyle == "" || characterName == "" || characterImageB64 == "" {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"error":   "episode_topic, story_style, character_name, and character_image_base64 are all required",
			})
			return
		}

		characterImage, err := base64.StdEncoding.DecodeString(characterImageB64)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"error":   "character_image_base64 is not valid base64",
			})
			return
		}

		request := &model.EpisodeRequest{
			Topic:          topic,
			StoryStyle:     storyStyle,
			CharacterName:  characterName,
			CharacterImage: characterImage,
		}

		episodeID := state.episodeService.StartEpisodeGeneration(request)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"episode": gin.H{
				"episode_id": episodeID,
				"status":     model.StatusPending,
				"message":    "Episode accepted and queued for generation.",
			},
		})
	})

	// Poll a job's status. The payload shape depends on the job's state.
	r.GET("/episodes/:episode_id", func(c *gin.Context) {
		episodeID := c.Param("episode_id")
		status, ok := state.episodeService.GetEpisodeStatus(episodeID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "episode not found"})
			return
		}

		switch status.Status {
		case model.StatusComplete:
			// The complete payload is the full episode document plus the
			// terminal status marker.
			c.JSON(http.StatusOK, struct {
				*model.EpisodeDocument
				Status string `json:"status"`
			}{status.Episode, model.StatusComplete})
		case model.StatusFailed:
			c.JSON(http.StatusOK, gin.H{
				"episode_id": status.EpisodeID,
				"status":     status.Status,
				"error":      status.Message,
				"created_at": status.CreatedAt,
				"updated_at": status.UpdatedAt,
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"episode_id": status.EpisodeID,
				"status":     status.Status,
				"message":    status.Message,
				"created_at": status.CreatedAt,
				"updated_at": status.UpdatedAt,
			})
		}
	})
}

// upgrader promotes voice agent HTTP requests to websockets. Origin checks
// are disabled to match the permissive CORS posture of the API.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VoiceAgentRouter sets up the websocket relay to the voice agent service.
func VoiceAgentRouter(r *gin.Engine) {
	r.GET("/ws/voice-agent/:session_id", func(c *gin.Context) {
		sessionID := c.Param("session_id")

		client, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("voice agent websocket upgrade failed", "error", err)
			return
		}
		defer client.Close()

		if err := state.voiceProxy.Proxy(c.Request.Context(), client, sessionID); err != nil {
			slog.Error("voice agent proxy failed", "session_id", sessionID, "error", err)
		}
	})
}
