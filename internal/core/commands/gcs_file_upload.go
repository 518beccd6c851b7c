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
// return path from local-file-based tools back to Google Cloud Storage: it
// streams a local file (a stitched episode, an extracted frame) into an
// explicit object name under the episode bucket.
//
// Logic Flow:
//  1. Open the local file for reading.
//  2. Open a writer on the destination object.
//  3. Stream the content with `io.Copy`, then close the writer to commit
//     the object. A failed close means the object was not created.
//
// Like the downloader, this is a plain helper: the stitcher and renderer
// call it directly with the object names they computed from the episode's
// storage layout.
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

// GCSUploader streams local files into Google Cloud Storage.
type GCSUploader struct {
	client *storage.Client // The GCS client for interacting with the storage service.
	bucket string          // The name of the destination GCS bucket.
}

// NewGCSUploader is the constructor for creating a new GCSUploader.
//
// Inputs:
//   - client: An initialized *storage.Client for communicating with GCS.
//   - bucket: The name of the target GCS bucket for uploads.
//
// Outputs:
//   - *GCSUploader: A pointer to the newly instantiated helper.
func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

// Upload copies the local file at path into the bucket under objectName and
// returns the gs:// URI of the created object.
//
// Inputs:
//   - ctx: The request context, used to cancel an in-flight upload.
//   - path: The local file to upload.
//   - objectName: The full object name inside the bucket.
//
// Outputs:
//   - string: The gs:// URI of the uploaded object.
//   - error: Any failure opening, streaming, or committing.
func (c *GCSUploader) Upload(ctx context.Context, path string, objectName string) (string, error) {
	dat, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer dat.Close()

	obj := c.client.Bucket(c.bucket).Object(objectName)
	writer := obj.NewWriter(ctx)

	// Stream the file content to GCS without buffering it in memory.
	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to copy to GCS, %d bytes written: %w", written, err)
	}

	// Closing the writer is what commits the object.
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS upload of %s: %w", objectName, err)
	}

	uri := (&cloud.GCSObject{Bucket: c.bucket, Name: objectName}).URI()
	log.Printf("Successfully uploaded %s to %s", path, uri)
	return uri, nil
}
