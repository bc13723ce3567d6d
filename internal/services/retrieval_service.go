package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
)

// ResolvedVia tags which retrieval path produced a result. The two paths are
// mutually exclusive per request; partial results are never merged.
type ResolvedVia string

const (
	// ViaNative means the platform's own authenticated client served the request.
	ViaNative ResolvedVia = "native"
	// ViaFallback means the generic retrieval engine served the request.
	ViaFallback ResolvedVia = "fallback"
)

// ResolvedMedia is the outcome of one retrieval: an ordered sequence of media
// items on disk inside a per-request scratch directory. The caller must call
// Release once the result is consumed; an independent sweep reclaims scratch
// directories left behind by abnormal termination.
type ResolvedMedia struct {
	Items []domain.MediaItem
	Via   ResolvedVia

	dir     string
	release sync.Once
}

// Release deletes the request's temporary files. Safe to call more than once.
func (r *ResolvedMedia) Release() error {
	var err error
	r.release.Do(func() {
		err = os.RemoveAll(r.dir)
	})
	return err
}

// ResolveRequest describes one retrieval.
type ResolveRequest struct {
	UserID string
	Ref    domain.ContentRef
	// AudioOnly requests extraction of an audio-only stream from video items.
	AudioOnly bool
}

// RetrievalService resolves content references to downloadable media through
// the platform-native path with a generic fallback engine, under size policy
// and guaranteed temporary-file cleanup.
type RetrievalService struct {
	sessions  *SessionManager
	fallback  platform.FallbackEngine
	extractor platform.AudioExtractor
	governor  RateGovernor
	userSvc   *UserService
	downloads domain.DownloadRepository
	users     domain.UserRepository
	logger    *slog.Logger

	botAccountID    string
	scratchDir      string
	sizeCeiling     int64
	infoTimeout     time.Duration
	downloadTimeout time.Duration
}

// RetrievalConfig configures a RetrievalService.
type RetrievalConfig struct {
	Sessions  *SessionManager
	Fallback  platform.FallbackEngine
	Extractor platform.AudioExtractor
	Governor  RateGovernor
	// UserService gates banned users ahead of admission when set.
	UserService *UserService
	Downloads   domain.DownloadRepository
	Users       domain.UserRepository
	Logger      *slog.Logger

	BotAccountID string
	ScratchDir   string
	// SizeCeiling is the per-item byte limit, 50 MB by default.
	SizeCeiling int64
	// InfoTimeout bounds metadata lookups; DownloadTimeout bounds transfers.
	InfoTimeout     time.Duration
	DownloadTimeout time.Duration
}

// NewRetrievalService creates a retrieval orchestrator.
func NewRetrievalService(cfg RetrievalConfig) *RetrievalService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SizeCeiling == 0 {
		cfg.SizeCeiling = 50 << 20
	}
	if cfg.InfoTimeout == 0 {
		cfg.InfoTimeout = 30 * time.Second
	}
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = 5 * time.Minute
	}
	return &RetrievalService{
		sessions:        cfg.Sessions,
		fallback:        cfg.Fallback,
		extractor:       cfg.Extractor,
		governor:        cfg.Governor,
		userSvc:         cfg.UserService,
		downloads:       cfg.Downloads,
		users:           cfg.Users,
		logger:          cfg.Logger,
		botAccountID:    cfg.BotAccountID,
		scratchDir:      cfg.ScratchDir,
		sizeCeiling:     cfg.SizeCeiling,
		infoTimeout:     cfg.InfoTimeout,
		downloadTimeout: cfg.DownloadTimeout,
	}
}

// Resolve fetches the media behind the reference. The native path is tried
// first; the fallback engine serves only references that are not
// platform-native identifiers, after the native path reported the session
// unavailable or the content missing. Every temporary file created here is
// removed on failure; on success ownership passes to the returned
// ResolvedMedia.
func (s *RetrievalService) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedMedia, error) {
	if s.userSvc != nil {
		if err := s.userSvc.EnsureAllowed(ctx, req.UserID); err != nil {
			return nil, err
		}
	}
	if s.governor != nil && !s.governor.Admit(ctx, req.UserID) {
		return nil, domain.NewRateLimitedError("too many requests, slow down")
	}

	dir := filepath.Join(s.scratchDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, domain.NewInternalError("SCRATCH_CREATE_FAILED", "failed to create scratch directory", err)
	}

	result, err := s.resolveNative(ctx, req, dir)
	if err != nil && s.fallbackEligible(req.Ref, err) {
		s.logger.Info("native path unavailable, using fallback engine",
			"user_id", req.UserID, "url", req.Ref.URL, "native_error", err)
		result, err = s.resolveFallback(ctx, req, dir)
	}
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("failed to remove scratch directory", "dir", dir, "error", rmErr)
		}
		return nil, err
	}

	if req.AudioOnly && result.Via == ViaNative {
		s.extractAudio(ctx, result)
	}

	s.recordHistory(ctx, req, result)
	return result, nil
}

// fallbackEligible implements the path decision: only non-native references
// may fall back, and only after the native path failed for a reason the
// fallback can do better on.
func (s *RetrievalService) fallbackEligible(ref domain.ContentRef, err error) bool {
	if ref.Native() || s.fallback == nil {
		return false
	}
	return domain.HasCode(err, domain.CodeSessionUnavailable) ||
		domain.HasCode(err, domain.CodeNotFound) ||
		domain.HasCode(err, domain.CodePrivateContent)
}

func (s *RetrievalService) resolveNative(ctx context.Context, req ResolveRequest, dir string) (*ResolvedMedia, error) {
	client, err := s.sessions.GetAuthenticatedClient(s.botAccountID)
	if err != nil {
		return nil, err
	}

	ictx, cancel := context.WithTimeout(ctx, s.infoTimeout)
	info, err := client.MediaInfo(ictx, req.Ref)
	cancel()
	if err != nil {
		return nil, translatePlatformError(err)
	}

	meta := &domain.MediaMetadata{
		Caption:        info.Caption,
		AuthorHandle:   info.AuthorHandle,
		AuthorName:     info.AuthorName,
		AuthorVerified: info.AuthorVerified,
		LikeCount:      info.LikeCount,
		CommentCount:   info.CommentCount,
		SourceURL:      info.SourceURL,
	}

	items := make([]domain.MediaItem, 0, len(info.Resources))
	for i, res := range info.Resources {
		// Skip the transfer when the platform already reports an oversize item.
		if res.Size > s.sizeCeiling {
			return nil, domain.NewContentTooLargeError(res.Size, s.sizeCeiling, i)
		}

		dctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
		path, err := client.DownloadResource(dctx, res, dir)
		cancel()
		if err != nil {
			return nil, translatePlatformError(err)
		}

		fi, err := os.Stat(path)
		if err != nil {
			return nil, domain.NewInternalError("DOWNLOAD_STAT_FAILED", "downloaded file missing", err)
		}
		if fi.Size() > s.sizeCeiling {
			// Discard the partial material for this item; the caller's cleanup
			// covers the earlier ones.
			if rmErr := os.Remove(path); rmErr != nil {
				s.logger.Warn("failed to discard oversize item", "path", path, "error", rmErr)
			}
			return nil, domain.NewContentTooLargeError(fi.Size(), s.sizeCeiling, i)
		}

		items = append(items, domain.MediaItem{
			Path:     path,
			Kind:     res.Kind,
			Size:     fi.Size(),
			Metadata: meta,
		})
	}

	return &ResolvedMedia{Via: ViaNative, Items: items, dir: dir}, nil
}

func (s *RetrievalService) resolveFallback(ctx context.Context, req ResolveRequest, dir string) (*ResolvedMedia, error) {
	dctx, cancel := context.WithTimeout(ctx, s.downloadTimeout)
	defer cancel()

	fbItems, err := s.fallback.Resolve(dctx, req.Ref.URL, dir, platform.FallbackOptions{AudioOnly: req.AudioOnly})
	if err != nil {
		return nil, translatePlatformError(err)
	}

	items := make([]domain.MediaItem, 0, len(fbItems))
	for i, it := range fbItems {
		if it.Size > s.sizeCeiling {
			return nil, domain.NewContentTooLargeError(it.Size, s.sizeCeiling, i)
		}
		// Fallback results carry payload and size only, no post metadata.
		items = append(items, domain.MediaItem{Path: it.Path, Kind: it.Kind, Size: it.Size})
	}

	return &ResolvedMedia{Via: ViaFallback, Items: items, dir: dir}, nil
}

// extractAudio swaps video items for audio-only extractions. Extraction
// failure degrades to the original video rather than failing the request.
func (s *RetrievalService) extractAudio(ctx context.Context, result *ResolvedMedia) {
	if s.extractor == nil {
		return
	}
	for i, item := range result.Items {
		if item.Kind != domain.MediaVideo {
			continue
		}
		audioPath, err := s.extractor.ExtractAudio(ctx, item.Path)
		if err != nil {
			s.logger.Warn("audio extraction failed, keeping video", "path", item.Path, "error", err)
			continue
		}
		fi, err := os.Stat(audioPath)
		if err != nil {
			s.logger.Warn("extracted audio missing, keeping video", "path", audioPath, "error", err)
			continue
		}
		if rmErr := os.Remove(item.Path); rmErr != nil {
			s.logger.Warn("failed to remove source video after extraction", "path", item.Path, "error", rmErr)
		}
		result.Items[i] = domain.MediaItem{
			Path:     audioPath,
			Kind:     domain.MediaAudio,
			Size:     fi.Size(),
			Metadata: item.Metadata,
		}
	}
}

// recordHistory writes the download row and bumps the user counter. History
// is advisory: failures are logged, never surfaced to the user.
func (s *RetrievalService) recordHistory(ctx context.Context, req ResolveRequest, result *ResolvedMedia) {
	if s.downloads == nil {
		return
	}
	var total int64
	kind := string(domain.MediaPhoto)
	for _, item := range result.Items {
		total += item.Size
	}
	if len(result.Items) > 0 {
		kind = string(result.Items[0].Kind)
	}
	err := s.downloads.Create(ctx, &domain.Download{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		MediaKind: kind,
		SourceURL: req.Ref.URL,
		Size:      total,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to record download history", "user_id", req.UserID, "error", err)
	}
	if s.users != nil {
		if err := s.users.IncrementDownloadCount(ctx, req.UserID); err != nil {
			s.logger.Warn("failed to bump download counter", "user_id", req.UserID, "error", err)
		}
	}
}

// SweepScratch removes per-request scratch directories older than maxAge.
// Backstop against leaks from abnormal termination; normal requests clean up
// through Release.
func (s *RetrievalService) SweepScratch(maxAge time.Duration) error {
	entries, err := os.ReadDir(s.scratchDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.scratchDir, entry.Name())
			if err := os.RemoveAll(path); err != nil {
				s.logger.Warn("failed to sweep scratch entry", "path", path, "error", err)
			} else {
				s.logger.Info("swept stale scratch entry", "path", path)
			}
		}
	}
	return nil
}
