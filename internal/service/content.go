package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

// ErrPlaybackDenied is the uniform rejection for any failed playback
// authorization. The distinguishing reason is logged server-side only.
var ErrPlaybackDenied = errors.New("playback denied")

// ContentService sits between the HTTP layer and the two capability
// schemes: it resolves videos, mints grants for them and turns verified
// grants into storage locators.
type ContentService struct {
	urls    *SignedURLService
	caps    *CapabilityService
	videos  storage.VideoRepository
	webhook *WebhookService
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewContentService(
	urls *SignedURLService,
	caps *CapabilityService,
	videos storage.VideoRepository,
	webhook *WebhookService,
	log *zap.SugaredLogger,
) *ContentService {
	return &ContentService{
		urls:    urls,
		caps:    caps,
		videos:  videos,
		webhook: webhook,
		log:     log,
		now:     time.Now,
	}
}

// GrantPlayback issues a signed playback URL for an existing, published
// video.
func (s *ContentService) GrantPlayback(ctx context.Context, videoID, userID string, ttl time.Duration) (*models.PlaybackURLResponse, error) {
	video, err := s.publishedVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	signedURL, expiresAt, err := s.urls.Issue(video.ID, userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue signed url: %w", err)
	}

	return &models.PlaybackURLResponse{URL: signedURL, ExpiresAt: expiresAt}, nil
}

// ResolvePlayback verifies the signed query parameters and returns the
// video with its storage locator. Expired grants and signature
// mismatches are logged and reported distinctly but both surface as
// ErrPlaybackDenied.
func (s *ContentService) ResolvePlayback(ctx context.Context, videoID, userID string, expiresAt int64, signature string) (*models.Video, error) {
	if !s.urls.Verify(videoID, userID, expiresAt, signature) {
		event := EventSignatureRejected
		if s.now().UnixMilli() > expiresAt {
			event = EventGrantExpired
		}
		s.log.Warnw("playback rejected", "videoID", videoID, "userID", userID, "reason", event)
		s.webhook.NotifySecurityEvent(event, map[string]interface{}{
			"video_id": videoID,
			"user_id":  userID,
		})
		return nil, ErrPlaybackDenied
	}

	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return nil, ErrPlaybackDenied
		}
		return nil, fmt.Errorf("get video: %w", err)
	}

	return video, nil
}

// MintCapability issues the permission-bearing token variant for a
// video.
func (s *ContentService) MintCapability(ctx context.Context, videoID, userID string, permissions []string, ttl time.Duration) (*models.CapabilityResponse, error) {
	video, err := s.publishedVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.caps.Mint(video.ID, userID, permissions, ttl)
	if err != nil {
		return nil, fmt.Errorf("mint capability: %w", err)
	}

	return &models.CapabilityResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// AuthorizeCapability verifies a capability token against a video and a
// required permission and returns the video with its storage locator.
func (s *ContentService) AuthorizeCapability(ctx context.Context, videoID, token, permission string) (*models.Video, error) {
	cap, ok := s.caps.Verify(token)
	if !ok || cap.ResourceID != videoID || (permission != "" && !cap.HasPermission(permission)) {
		s.log.Warnw("capability rejected", "videoID", videoID)
		s.webhook.NotifySecurityEvent(EventSignatureRejected, map[string]interface{}{
			"video_id": videoID,
		})
		return nil, ErrPlaybackDenied
	}

	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return nil, ErrPlaybackDenied
		}
		return nil, fmt.Errorf("get video: %w", err)
	}

	return video, nil
}

func (s *ContentService) publishedVideo(ctx context.Context, videoID string) (*models.Video, error) {
	video, err := s.videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !video.Published {
		return nil, storage.ErrVideoNotFound
	}
	return video, nil
}
