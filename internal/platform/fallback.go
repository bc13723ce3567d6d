package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mxteam/mediabot/internal/domain"
)

// FallbackItem is one payload produced by the fallback engine. The fallback
// path carries no post metadata, only the payload and its size.
type FallbackItem struct {
	Path string
	Kind domain.MediaKind
	Size int64
}

// FallbackOptions control a fallback resolution.
type FallbackOptions struct {
	// AudioOnly requests an mp3 audio extraction instead of the full media.
	AudioOnly bool
}

// FallbackEngine is the capability object for the generic retrieval engine.
type FallbackEngine interface {
	// Resolve fetches the media behind url into dir.
	Resolve(ctx context.Context, url, dir string, opts FallbackOptions) ([]FallbackItem, error)
}

// YTDLPEngine shells out to the yt-dlp binary.
type YTDLPEngine struct {
	// Binary is the yt-dlp executable, "yt-dlp" by default.
	Binary string
}

// NewYTDLPEngine creates a fallback engine backed by the yt-dlp binary.
func NewYTDLPEngine(binary string) *YTDLPEngine {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPEngine{Binary: binary}
}

// Resolve downloads the media behind url into dir and returns the produced
// files. yt-dlp prints one final file path per downloaded entry.
func (e *YTDLPEngine) Resolve(ctx context.Context, url, dir string, opts FallbackOptions) ([]FallbackItem, error) {
	args := []string{
		"--no-warnings",
		"--restrict-filenames",
		"--no-playlist",
		"--print", "after_move:filepath",
		"--no-simulate",
		"-o", filepath.Join(dir, "%(id)s.%(ext)s"),
	}
	if opts.AudioOnly {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	} else {
		args = append(args, "-f", "bestvideo*+bestaudio/best")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindTransient, Message: "fallback engine timed out", Cause: ctx.Err()}
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "Unsupported URL") || strings.Contains(msg, "404") {
			return nil, &Error{Kind: KindNotFound, Message: "fallback engine could not resolve the URL", Cause: err}
		}
		return nil, &Error{Kind: KindTransient, Message: fmt.Sprintf("fallback engine failed: %s", firstLine(msg)), Cause: err}
	}

	var items []FallbackItem
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			continue
		}
		fi, err := os.Stat(path)
		if err != nil {
			return nil, &Error{Kind: KindTransient, Message: "fallback engine reported a missing file", Cause: err}
		}
		items = append(items, FallbackItem{
			Path: path,
			Kind: kindForExt(filepath.Ext(path), opts.AudioOnly),
			Size: fi.Size(),
		})
	}
	if len(items) == 0 {
		return nil, &Error{Kind: KindNotFound, Message: "fallback engine produced no media"}
	}
	return items, nil
}

func kindForExt(ext string, audioOnly bool) domain.MediaKind {
	if audioOnly {
		return domain.MediaAudio
	}
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
		return domain.MediaPhoto
	case ".mp3", ".m4a", ".opus", ".ogg":
		return domain.MediaAudio
	default:
		return domain.MediaVideo
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
