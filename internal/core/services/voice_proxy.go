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

// Package services contains the business logic that sits between the HTTP
// API and the generation pipeline. This file implements the voice agent
// proxy: a bidirectional websocket relay between the browser and the
// standalone voice reasoning agent, so the frontend only ever talks to this
// server.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// VoiceAgentProxy relays websocket traffic between a client session and the
// upstream voice agent service.
type VoiceAgentProxy struct {
	Endpoint string // Upstream base URL, e.g. "ws://localhost:8002/ws/voice-agent".
	logger   *slog.Logger
}

// NewVoiceAgentProxy creates a proxy that dials the given upstream endpoint.
func NewVoiceAgentProxy(endpoint string, logger *slog.Logger) *VoiceAgentProxy {
	return &VoiceAgentProxy{Endpoint: endpoint, logger: logger}
}

// Proxy connects the client's websocket to the upstream voice agent for the
// given session and pumps messages in both directions until either side
// closes. It blocks for the lifetime of the session and always closes the
// upstream connection before returning; the caller owns the client side.
//
// Inputs:
//   - ctx: The request context; cancelling it tears down the upstream dial.
//   - client: The already-upgraded websocket from the browser.
//   - sessionID: The voice session identifier, appended to the upstream URL.
//
// Outputs:
//   - error: The upstream dial error, or nil once the session ends.
func (p *VoiceAgentProxy) Proxy(ctx context.Context, client *websocket.Conn, sessionID string) error {
	upstreamURL := fmt.Sprintf("%s/%s", p.Endpoint, sessionID)
	p.logger.Info("voice agent proxy connecting", "upstream", upstreamURL, "session_id", sessionID)

	upstream, _, err := websocket.DefaultDialer.DialContext(ctx, upstreamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to voice agent at %s: %w", upstreamURL, err)
	}
	defer upstream.Close()

	var wg sync.WaitGroup
	wg.Add(2)

	// Client to upstream. Message types (text or binary audio frames) are
	// preserved as-is.
	go func() {
		defer wg.Done()
		defer upstream.Close()
		for {
			messageType, payload, err := client.ReadMessage()
			if err != nil {
				p.logger.Debug("voice agent proxy client read ended", "session_id", sessionID, "error", err)
				return
			}
			if err := upstream.WriteMessage(messageType, payload); err != nil {
				p.logger.Debug("voice agent proxy upstream write ended", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	// Upstream to client.
	go func() {
		defer wg.Done()
		defer client.Close()
		for {
			messageType, payload, err := upstream.ReadMessage()
			if err != nil {
				p.logger.Debug("voice agent proxy upstream read ended", "session_id", sessionID, "error", err)
				return
			}
			if err := client.WriteMessage(messageType, payload); err != nil {
				p.logger.Debug("voice agent proxy client write ended", "session_id", sessionID, "error", err)
				return
			}
		}
	}()

	wg.Wait()
	p.logger.Info("voice agent proxy session closed", "session_id", sessionID)
	return nil
}
