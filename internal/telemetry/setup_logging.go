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

// Package telemetry provides utilities for setting up and configuring
// application observability, including logging, tracing, and metrics.
// This file handles structured logging in the shape Google Cloud Logging
// expects, with OpenTelemetry trace ids injected into every record so log
// lines and traces correlate automatically in the console.
package telemetry

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// traceContextHandler wraps another slog.Handler and stamps each record with
// the trace and span ids of the active OpenTelemetry span, if any. The
// attribute names follow the Cloud Logging special-field convention, see
// https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
type traceContextHandler struct {
	slog.Handler
}

func withTraceContext(handler slog.Handler) *traceContextHandler {
	return &traceContextHandler{Handler: handler}
}

// Handle injects the span context attributes before delegating to the
// wrapped handler. Records logged outside any span pass through unchanged.
func (t *traceContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if s := trace.SpanContextFromContext(ctx); s.IsValid() {
		record.AddAttrs(
			slog.Any("logging.googleapis.com/trace", s.TraceID()),
			slog.Any("logging.googleapis.com/spanId", s.SpanID()),
			slog.Bool("logging.googleapis.com/trace_sampled", s.TraceFlags().IsSampled()),
		)
	}
	return t.Handler.Handle(ctx, record)
}

// replacer renames slog's default attribute keys to the ones Cloud Logging
// parses for severity, timestamp, and message. slog's "WARN" additionally
// maps to the LogSeverity enum value "WARNING".
func replacer(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		a.Key = "severity"
		if level := a.Value.Any().(slog.Level); level == slog.LevelWarn {
			a.Value = slog.StringValue("WARNING")
		}
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// SetupLogging configures both the standard `log` package and the global
// slog logger. Output goes to stdout and a local app.log file; slog records
// are JSON with GCP field names and trace correlation attributes.
func SetupLogging() {
	file, _ := os.Create("app.log")
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Commands and helpers that still use the standard logger share the same
	// writers so nothing is lost to the void.
	log.SetOutput(multiWriter)
	log.SetPrefix("[INFO] ")
	log.SetFlags(log.Ldate | log.Ltime)

	jsonHandler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{ReplaceAttr: replacer})
	slog.SetDefault(slog.New(withTraceContext(jsonHandler)))
	slog.SetLogLoggerLevel(slog.LevelInfo)
}
