package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// AudioExtractor extracts an audio-only stream from a resolved video file.
type AudioExtractor interface {
	// ExtractAudio writes an mp3 next to the video and returns its path.
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
}

// FFmpegExtractor shells out to the ffmpeg binary.
type FFmpegExtractor struct {
	Binary string
}

// NewFFmpegExtractor creates an audio extractor backed by the ffmpeg binary.
func NewFFmpegExtractor(binary string) *FFmpegExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegExtractor{Binary: binary}
}

// ExtractAudio strips the video stream and encodes the audio track as mp3.
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".mp3"

	cmd := exec.CommandContext(ctx, e.Binary,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg extraction failed: %s: %w", firstLine(strings.TrimSpace(stderr.String())), err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("ffmpeg produced no output file: %w", err)
	}
	return audioPath, nil
}
