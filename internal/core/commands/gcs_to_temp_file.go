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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// bridge from Google Cloud Storage to local-file-based tools (FFmpeg): it
// downloads a GCS object to a temporary file and hands back the local path.
//
// Logic Flow:
//  1. Open a reader on the GCS object.
//  2. Create a local temporary file. The caller supplies the file suffix
//     (".mp4", ".png") because FFmpeg infers formats from extensions.
//  3. Stream the content with `io.Copy`, chunked, never holding the whole
//     clip in memory.
//
// The media engine downloads many clips per episode (one per scene, plus
// feedback material), so this is a plain helper rather than a chain step.
// Callers that run inside a workflow register the returned path with
// `cor.Context.AddTempFile` so cleanup happens at the end of the run.
package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/toonlabs/episode-engine/internal/cloud"
)

// GCSDownloader streams objects out of Google Cloud Storage onto the local
// filesystem so FFmpeg can operate on them.
type GCSDownloader struct {
	client         *storage.Client // The GCS client for interacting with the storage service.
	tempFilePrefix string          // A prefix to use when naming the temporary files.
}

// NewGCSDownloader is the constructor for creating a new GCSDownloader.
//
// Inputs:
//   - client: An initialized *storage.Client for communicating with GCS.
//   - tempFilePrefix: A string prefix for the temporary files' names.
//
// Outputs:
//   - *GCSDownloader: A pointer to the newly instantiated helper.
func NewGCSDownloader(client *storage.Client, tempFilePrefix string) *GCSDownloader {
	return &GCSDownloader{
		client:         client,
		tempFilePrefix: tempFilePrefix,
	}
}

// DownloadToTemp copies the given GCS object to a new temporary file whose
// name ends in suffix, and returns the local path.
//
// Inputs:
//   - ctx: The request context, used to cancel an in-flight download.
//   - obj: The bucket and object name to download.
//   - suffix: The file extension for the temp file, including the dot.
//
// Outputs:
//   - string: The path of the downloaded temporary file.
//   - error: Any failure opening, creating, or streaming.
func (c *GCSDownloader) DownloadToTemp(ctx context.Context, obj *cloud.GCSObject, suffix string) (string, error) {
	reader, err := c.client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create GCS reader for %s: %w", obj.URI(), err)
	}
	// Close the reader when done to release the connection. A close error
	// after a complete read is logged, not fatal.
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			log.Printf("failed to close GCS reader: %v\n", err)
		}
	}(reader)

	tempFile, err := os.CreateTemp("", c.tempFilePrefix+"*"+suffix)
	if err != nil {
		return "", fmt.Errorf("could not create temp file: %w", err)
	}

	// Stream the content in chunks rather than loading the clip into memory.
	written, err := io.Copy(tempFile, reader)
	if err != nil {
		_ = tempFile.Close()
		return "", fmt.Errorf("failed to copy GCS object to local file, %d bytes written: %w", written, err)
	}
	if err := tempFile.Close(); err != nil {
		return "", err
	}

	log.Printf("Successfully downloaded %s to local file %s (%d bytes)", obj.URI(), tempFile.Name(), written)
	return tempFile.Name(), nil
}
