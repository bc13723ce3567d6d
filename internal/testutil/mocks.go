// Package testutil provides scripted collaborator doubles for service tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
)

// MockPlatformClient implements platform.Client with scripted behavior. Each
// hook defaults to a benign success; tests override only what they exercise.
type MockPlatformClient struct {
	LoginFunc            func(ctx context.Context, creds platform.Credentials) error
	ResumeChallengeFunc  func(ctx context.Context, resumeToken, proof string) error
	ImportSessionFunc    func(blob []byte) error
	ExportSessionFunc    func() ([]byte, error)
	ValidateFunc         func(ctx context.Context) error
	DirectMessagesFunc   func(ctx context.Context, handle string, limit int) ([]platform.DirectMessage, error)
	MediaInfoFunc        func(ctx context.Context, ref domain.ContentRef) (*platform.MediaInfo, error)
	DownloadResourceFunc func(ctx context.Context, res platform.MediaResource, dir string) (string, error)

	mu            sync.Mutex
	loginCalls    int
	validateCalls int
}

// Login runs the scripted login hook.
func (m *MockPlatformClient) Login(ctx context.Context, creds platform.Credentials) error {
	m.mu.Lock()
	m.loginCalls++
	m.mu.Unlock()
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return nil
}

// ResumeChallenge runs the scripted challenge hook.
func (m *MockPlatformClient) ResumeChallenge(ctx context.Context, resumeToken, proof string) error {
	if m.ResumeChallengeFunc != nil {
		return m.ResumeChallengeFunc(ctx, resumeToken, proof)
	}
	return nil
}

// ImportSession runs the scripted import hook.
func (m *MockPlatformClient) ImportSession(blob []byte) error {
	if m.ImportSessionFunc != nil {
		return m.ImportSessionFunc(blob)
	}
	return nil
}

// ExportSession runs the scripted export hook.
func (m *MockPlatformClient) ExportSession() ([]byte, error) {
	if m.ExportSessionFunc != nil {
		return m.ExportSessionFunc()
	}
	return []byte("session-blob"), nil
}

// Validate runs the scripted probe hook.
func (m *MockPlatformClient) Validate(ctx context.Context) error {
	m.mu.Lock()
	m.validateCalls++
	m.mu.Unlock()
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	return nil
}

// DirectMessagesFrom runs the scripted inbox hook.
func (m *MockPlatformClient) DirectMessagesFrom(ctx context.Context, handle string, limit int) ([]platform.DirectMessage, error) {
	if m.DirectMessagesFunc != nil {
		return m.DirectMessagesFunc(ctx, handle, limit)
	}
	return nil, nil
}

// MediaInfo runs the scripted metadata hook.
func (m *MockPlatformClient) MediaInfo(ctx context.Context, ref domain.ContentRef) (*platform.MediaInfo, error) {
	if m.MediaInfoFunc != nil {
		return m.MediaInfoFunc(ctx, ref)
	}
	return nil, &platform.Error{Kind: platform.KindNotFound, Message: "no scripted media"}
}

// DownloadResource runs the scripted transfer hook. The default writes a small
// file into dir so size checks see a real payload.
func (m *MockPlatformClient) DownloadResource(ctx context.Context, res platform.MediaResource, dir string) (string, error) {
	if m.DownloadResourceFunc != nil {
		return m.DownloadResourceFunc(ctx, res, dir)
	}
	path := filepath.Join(dir, res.ID+".bin")
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// LoginCalls returns how many times Login ran.
func (m *MockPlatformClient) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCalls
}

// ValidateCalls returns how many times Validate ran.
func (m *MockPlatformClient) ValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validateCalls
}

// MockFallbackEngine implements platform.FallbackEngine with a scripted hook.
type MockFallbackEngine struct {
	ResolveFunc func(ctx context.Context, url, dir string, opts platform.FallbackOptions) ([]platform.FallbackItem, error)
}

// Resolve runs the scripted hook.
func (m *MockFallbackEngine) Resolve(ctx context.Context, url, dir string, opts platform.FallbackOptions) ([]platform.FallbackItem, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, url, dir, opts)
	}
	return nil, &platform.Error{Kind: platform.KindNotFound, Message: "no scripted fallback"}
}

// MockAudioExtractor implements platform.AudioExtractor with a scripted hook.
type MockAudioExtractor struct {
	ExtractFunc func(ctx context.Context, videoPath string) (string, error)
}

// ExtractAudio runs the scripted hook. The default writes an .mp3 next to the
// source video.
func (m *MockAudioExtractor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, videoPath)
	}
	audioPath := videoPath[:len(videoPath)-len(filepath.Ext(videoPath))] + ".mp3"
	if err := os.WriteFile(audioPath, []byte("audio"), 0o600); err != nil {
		return "", err
	}
	return audioPath, nil
}
