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

// Package cor (Chain of Responsibility) is the workflow framework the episode
// pipeline is built on. A workflow is a Chain of Commands sharing one Context;
// each Command reads its input from the Context, does one unit of work, and
// writes its output back for the next Command. The generation pipeline (plan,
// expand, validate-and-repair, render, stitch, sign) is one such chain.
//
// This file defines the interfaces. The Base* files in this package provide
// the default implementations that concrete commands embed.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the well-known keys that carry the primary data flow
// between consecutive commands in a chain.
const (
	// CtxIn is the default key for a command's primary input. The BaseChain
	// populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command places its primary output.
	// The BaseChain moves the value to CtxIn before running the next command.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution: a property bag for
// data, an error collector, and a registry of temporary files to clean up.
type Context interface {
	// SetContext sets the standard Go `context.Context`, carrying cancellation
	// and OpenTelemetry trace information.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go `context.Context`.
	GetContext() context.Context

	// Add stores a key-value pair. It returns the Context so calls can be
	// chained fluently.
	Add(key string, value interface{}) Context

	// AddError records an error under the name of the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every error collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by its key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile registers a file created during the workflow so Close can
	// delete it.
	AddTempFile(file string)

	// GetTempFiles returns all registered temporary file paths.
	GetTempFiles() []string

	// Close deletes all registered temporary files. Defer it at the start of
	// a workflow.
	Close()
}

// Executable is anything with a single unit of execution logic.
type Executable interface {
	// Execute runs the business logic, reading inputs from and writing
	// outputs to the given Context.
	Execute(context Context)
}

// Command is an atomic, testable, thread-safe unit of work and the building
// block every workflow is assembled from.
type Command interface {
	Executable

	// GetName returns the command's unique name, used for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key this command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key this command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for creating metrics.
	GetMeter() metric.Meter

	// GetSuccessCounter returns a metric counter for successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns a metric counter for failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains can be nested (Composite pattern).
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
