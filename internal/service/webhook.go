package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	webhookStatusThreshold = 300
	webhookTimeout         = 5 * time.Second
)

// Security event names reported to the monitoring webhook.
const (
	EventSignatureRejected = "signature_rejected"
	EventGrantExpired      = "grant_expired"
	EventRateLimited       = "rate_limited"
	EventSessionsRevoked   = "sessions_revoked"
)

// WebhookService pushes security events to an external monitoring
// endpoint. Delivery is fire-and-forget: a dead webhook must never slow
// down or fail a request.
type WebhookService struct {
	client     *http.Client
	log        *zap.SugaredLogger
	webhookURL string
}

func NewWebhookService(log *zap.SugaredLogger, webhookURL string) *WebhookService {
	return &WebhookService{
		client:     &http.Client{Timeout: webhookTimeout},
		log:        log,
		webhookURL: webhookURL,
	}
}

func (s *WebhookService) NotifySecurityEvent(event string, fields map[string]interface{}) {
	if s.webhookURL == "" {
		return
	}

	body := map[string]interface{}{
		"event":       event,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		body[k] = v
	}

	go func() {
		payload, err := json.Marshal(body)
		if err != nil {
			s.log.Errorw("failed to marshal webhook payload", "error", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(payload))
		if err != nil {
			s.log.Errorw("failed to create webhook request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Errorw("failed to send webhook", "error", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= webhookStatusThreshold {
			s.log.Warnw("webhook returned non-2xx status", "status", resp.StatusCode, "event", event)
		}
	}()
}
