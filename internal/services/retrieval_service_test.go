package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
	"github.com/mxteam/mediabot/internal/repository"
	"github.com/mxteam/mediabot/internal/testutil"
)

type retrievalFixture struct {
	service  *RetrievalService
	client   *testutil.MockPlatformClient
	fallback *testutil.MockFallbackEngine
	users    domain.UserRepository
	scratch  string
}

func newRetrievalFixture(t *testing.T, ceiling int64) *retrievalFixture {
	t.Helper()

	f := &retrievalFixture{
		client:   &testutil.MockPlatformClient{},
		fallback: &testutil.MockFallbackEngine{},
		users:    repository.NewMemoryUserRepository(),
		scratch:  t.TempDir(),
	}

	sessions, _ := newTestSessionManager(f.client)
	_, err := sessions.Login(context.Background(), testAccount, platform.Credentials{Username: "bot", Password: "pw"})
	require.NoError(t, err)

	f.service = NewRetrievalService(RetrievalConfig{
		Sessions:     sessions,
		Fallback:     f.fallback,
		Extractor:    &testutil.MockAudioExtractor{},
		UserService:  NewUserService(f.users, nil),
		Downloads:    repository.NewMemoryDownloadRepository(),
		Users:        f.users,
		BotAccountID: testAccount,
		ScratchDir:   f.scratch,
		SizeCeiling:  ceiling,
	})
	return f
}

// scratchEntries counts the surviving per-request directories.
func (f *retrievalFixture) scratchEntries(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.scratch)
	require.NoError(t, err)
	return len(entries)
}

func (f *retrievalFixture) scriptAlbum(sizes ...int64) {
	resources := make([]platform.MediaResource, len(sizes))
	for i := range sizes {
		resources[i] = platform.MediaResource{ID: string(rune('a' + i)), Kind: domain.MediaPhoto}
	}
	f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
		return &platform.MediaInfo{
			Caption:      "an album",
			AuthorHandle: "somebody",
			Resources:    resources,
		}, nil
	}
	f.client.DownloadResourceFunc = func(_ context.Context, res platform.MediaResource, dir string) (string, error) {
		idx := int(res.ID[0] - 'a')
		path := filepath.Join(dir, res.ID+".jpg")
		return path, os.WriteFile(path, make([]byte, sizes[idx]), 0o600)
	}
}

func postRef() domain.ContentRef {
	return domain.ContentRef{Kind: domain.RefPost, URL: "https://instagram.com/p/Abc123/", Shortcode: "Abc123"}
}

func genericRef() domain.ContentRef {
	return domain.ContentRef{Kind: domain.RefGenericURL, URL: "https://example.com/watch?v=1"}
}

func TestRetrievalService_Resolve_Native(t *testing.T) {
	ctx := context.Background()

	t.Run("album resolves in order with shared metadata", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.scriptAlbum(100, 200, 300)

		result, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef()})
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, ViaNative, result.Via)
		require.Len(t, result.Items, 3)
		for i, item := range result.Items {
			assert.FileExists(t, item.Path)
			assert.Equal(t, int64((i+1)*100), item.Size)
			require.NotNil(t, item.Metadata)
			assert.Equal(t, "somebody", item.Metadata.AuthorHandle)
		}
	})

	t.Run("release removes every temporary file", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.scriptAlbum(100)

		result, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef()})
		require.NoError(t, err)
		require.NoError(t, result.Release())
		require.NoError(t, result.Release(), "release must be idempotent")
		assert.Zero(t, f.scratchEntries(t))
	})

	t.Run("oversize item k fails the whole request and cleans up", func(t *testing.T) {
		f := newRetrievalFixture(t, 250)
		f.scriptAlbum(100, 200, 300)

		_, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef()})
		require.Error(t, err)
		require.True(t, domain.HasCode(err, domain.CodeContentTooLarge))

		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, 2, de.Details["item_index"])
		assert.Equal(t, int64(300), de.Details["size"])

		// Items before k must not survive as orphans.
		assert.Zero(t, f.scratchEntries(t))
	})

	t.Run("platform-reported oversize skips the transfer", func(t *testing.T) {
		f := newRetrievalFixture(t, 250)
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return &platform.MediaInfo{Resources: []platform.MediaResource{
				{ID: "a", Kind: domain.MediaVideo, Size: 10 << 20},
			}}, nil
		}
		downloaded := false
		f.client.DownloadResourceFunc = func(context.Context, platform.MediaResource, string) (string, error) {
			downloaded = true
			return "", nil
		}

		_, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef()})
		require.True(t, domain.HasCode(err, domain.CodeContentTooLarge))
		assert.False(t, downloaded)
	})

	t.Run("audio extraction replaces the video item", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return &platform.MediaInfo{Resources: []platform.MediaResource{
				{ID: "a", Kind: domain.MediaVideo},
			}}, nil
		}
		f.client.DownloadResourceFunc = func(_ context.Context, res platform.MediaResource, dir string) (string, error) {
			path := filepath.Join(dir, "a.mp4")
			return path, os.WriteFile(path, []byte("video"), 0o600)
		}

		result, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef(), AudioOnly: true})
		require.NoError(t, err)
		defer result.Release()

		require.Len(t, result.Items, 1)
		assert.Equal(t, domain.MediaAudio, result.Items[0].Kind)
		assert.Equal(t, ".mp3", filepath.Ext(result.Items[0].Path))
	})

	t.Run("failed extraction degrades to the video", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return &platform.MediaInfo{Resources: []platform.MediaResource{
				{ID: "a", Kind: domain.MediaVideo},
			}}, nil
		}
		f.client.DownloadResourceFunc = func(_ context.Context, res platform.MediaResource, dir string) (string, error) {
			path := filepath.Join(dir, "a.mp4")
			return path, os.WriteFile(path, []byte("video"), 0o600)
		}
		f.service.extractor = &testutil.MockAudioExtractor{
			ExtractFunc: func(context.Context, string) (string, error) {
				return "", assert.AnError
			},
		}

		result, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef(), AudioOnly: true})
		require.NoError(t, err)
		defer result.Release()

		require.Len(t, result.Items, 1)
		assert.Equal(t, domain.MediaVideo, result.Items[0].Kind)
	})
}

func TestRetrievalService_Resolve_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("generic url falls back when the native path cannot serve", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		// Native metadata lookup reports the reference unknown.
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return nil, &platform.Error{Kind: platform.KindNotFound}
		}
		f.fallback.ResolveFunc = func(_ context.Context, _, dir string, _ platform.FallbackOptions) ([]platform.FallbackItem, error) {
			path := filepath.Join(dir, "clip.mp4")
			require.NoError(t, os.WriteFile(path, []byte("clip"), 0o600))
			return []platform.FallbackItem{{Path: path, Kind: domain.MediaVideo, Size: 4}}, nil
		}

		result, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: genericRef()})
		require.NoError(t, err)
		defer result.Release()

		assert.Equal(t, ViaFallback, result.Via)
		require.Len(t, result.Items, 1)
		assert.Nil(t, result.Items[0].Metadata, "fallback results carry no post metadata")
	})

	t.Run("native reference never falls back", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return nil, &platform.Error{Kind: platform.KindNotFound}
		}
		fellBack := false
		f.fallback.ResolveFunc = func(context.Context, string, string, platform.FallbackOptions) ([]platform.FallbackItem, error) {
			fellBack = true
			return nil, nil
		}

		_, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: postRef()})
		require.True(t, domain.HasCode(err, domain.CodeNotFound))
		assert.False(t, fellBack)
		assert.Zero(t, f.scratchEntries(t))
	})

	t.Run("fallback failure cleans up the scratch directory", func(t *testing.T) {
		f := newRetrievalFixture(t, 1<<20)
		f.client.MediaInfoFunc = func(context.Context, domain.ContentRef) (*platform.MediaInfo, error) {
			return nil, &platform.Error{Kind: platform.KindNotFound}
		}
		f.fallback.ResolveFunc = func(context.Context, string, string, platform.FallbackOptions) ([]platform.FallbackItem, error) {
			return nil, &platform.Error{Kind: platform.KindNotFound, Message: "unsupported url"}
		}

		_, err := f.service.Resolve(ctx, ResolveRequest{UserID: "user1", Ref: genericRef()})
		require.Error(t, err)
		assert.Zero(t, f.scratchEntries(t))
	})
}

func TestRetrievalService_Resolve_RateLimited(t *testing.T) {
	f := newRetrievalFixture(t, 1<<20)
	f.scriptAlbum(100)
	f.service.governor = NewIntervalGovernor(5*time.Second, nil)

	result, err := f.service.Resolve(context.Background(), ResolveRequest{UserID: "user1", Ref: postRef()})
	require.NoError(t, err)
	defer result.Release()

	_, err = f.service.Resolve(context.Background(), ResolveRequest{UserID: "user1", Ref: postRef()})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeRateLimited))
	assert.Equal(t, 1, f.scratchEntries(t), "a rejected request must not create scratch state")
}

func TestRetrievalService_SweepScratch(t *testing.T) {
	f := newRetrievalFixture(t, 1<<20)

	stale := filepath.Join(f.scratch, "stale-request")
	require.NoError(t, os.MkdirAll(stale, 0o700))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(f.scratch, "fresh-request")
	require.NoError(t, os.MkdirAll(fresh, 0o700))

	require.NoError(t, f.service.SweepScratch(24*time.Hour))
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}
