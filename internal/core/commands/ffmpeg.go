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
// Responsibility (COR) pattern's Command interface. This file wraps the two
// FFmpeg invocations the media engine needs:
//
//  1. Extracting the final frame of a scene clip, used as the visual anchor
//     for that scene's idle loop so the pause holds on exactly what the
//     viewer last saw.
//  2. Stitching the ordered scene clips into a single master episode file
//     using the concat demuxer with stream copy, so no re-encode happens.
//
// Both run the ffmpeg binary via os/exec; there is no in-process decoding.
package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Constants used for the FFmpeg command execution.
const (
	// LastFrameArgs is a format string for extracting a single frame near the
	// end of a clip.
	// -y: Overwrite output files without asking.
	// -sseof -%s: Seek to %s seconds before the end of the input.
	// -i %s: Specifies the input file.
	// -vframes 1: Emit exactly one frame.
	// -q:v 2: High JPEG/PNG quality for the emitted frame.
	LastFrameArgs = "-y -sseof -%s -i %s -vframes 1 -q:v 2 %s"

	// ConcatArgs is a format string for lossless concatenation.
	// -f concat -safe 0 -i %s: Read the list of input clips from a concat
	// manifest file, allowing absolute paths.
	// -c copy: Copy the streams without re-encoding. All clips come from the
	// same video model with identical encoding parameters, which is what
	// makes stream copy safe here.
	ConcatArgs = "-y -f concat -safe 0 -i %s -c copy %s"

	TempFilePrefix   = "episode-ffmpeg-"
	CommandSeparator = " "
)

// FFmpegRunner executes ffmpeg with a configurable binary path so tests and
// containers that install ffmpeg somewhere unusual can point at it.
type FFmpegRunner struct {
	commandPath string
}

// NewFFmpegRunner creates a runner for the given ffmpeg executable path
// (e.g. "/usr/bin/ffmpeg" or just "ffmpeg" to use PATH lookup).
func NewFFmpegRunner(commandPath string) *FFmpegRunner {
	return &FFmpegRunner{commandPath: commandPath}
}

// ExtractLastFrame writes a still image taken offsetSeconds before the end
// of the input clip. The offset is small (a fraction of a second) so the
// frame matches the clip's closing moment.
func (f *FFmpegRunner) ExtractLastFrame(inputPath string, outputPath string, offsetSeconds float64) error {
	offset := strconv.FormatFloat(offsetSeconds, 'f', -1, 64)
	args := fmt.Sprintf(LastFrameArgs, offset, inputPath, outputPath)
	return f.run(args)
}

// Stitch concatenates the given clips, in order, into a single output file.
// It writes a concat manifest to a temp file, runs ffmpeg in stream-copy
// mode, and removes the manifest when done.
func (f *FFmpegRunner) Stitch(clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to stitch")
	}

	manifest, err := os.CreateTemp("", TempFilePrefix)
	if err != nil {
		return fmt.Errorf("could not create concat manifest: %w", err)
	}
	defer os.Remove(manifest.Name())

	if _, err := manifest.WriteString(BuildConcatManifest(clipPaths)); err != nil {
		manifest.Close()
		return fmt.Errorf("could not write concat manifest: %w", err)
	}
	if err := manifest.Close(); err != nil {
		return err
	}

	args := fmt.Sprintf(ConcatArgs, manifest.Name(), outputPath)
	return f.run(args)
}

func (f *FFmpegRunner) run(args string) error {
	cmd := exec.Command(f.commandPath, strings.Split(args, CommandSeparator)...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error running ffmpeg: %w", err)
	}
	return nil
}

// BuildConcatManifest renders the concat demuxer's input list, one
// `file '<path>'` line per clip, preserving the given order.
func BuildConcatManifest(clipPaths []string) string {
	var sb strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&sb, "file '%s'\n", p)
	}
	return sb.String()
}

// MoveFile copies sourcePath to destPath and removes the source. A plain
// os.Rename fails across filesystem boundaries (temp dir to a mounted
// volume), so this copies instead.
func MoveFile(sourcePath, destPath string) error {
	inputFile, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("could not open source file: %v", err)
	}
	defer inputFile.Close()

	outputFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("could not open dest file: %v", err)
	}
	defer outputFile.Close()

	_, err = io.Copy(outputFile, inputFile)
	if err != nil {
		return fmt.Errorf("could not copy to dest from source: %v", err)
	}

	inputFile.Close()

	err = os.Remove(sourcePath)
	if err != nil {
		return fmt.Errorf("could not remove source file: %v", err)
	}
	return nil
}
