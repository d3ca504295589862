package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

// Capability is the permission-bearing token payload. Unlike the
// query-string scheme it carries its own state, so the verifier needs
// nothing beyond the token itself.
type Capability struct {
	ResourceID  string   `json:"resource_id"`
	SubjectID   string   `json:"subject_id"`
	Permissions []string `json:"permissions"`
	Expiration  int64    `json:"expiration"`
}

func (c *Capability) HasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// CapabilityService mints tokens of the form base64url(JSON).hexSig,
// where the signature covers the JSON bytes rather than their encoded
// form.
type CapabilityService struct {
	signer     hmacSigner
	defaultTTL time.Duration
	now        func() time.Time
}

func NewCapabilityService(cfg *util.SigningConfig) (*CapabilityService, error) {
	signer, err := newHMACSigner(cfg.CapabilitySecret)
	if err != nil {
		return nil, fmt.Errorf("capability service: %w", err)
	}
	return &CapabilityService{
		signer:     signer,
		defaultTTL: cfg.CapabilityTTL,
		now:        time.Now,
	}, nil
}

func (s *CapabilityService) Mint(resourceID, subjectID string, permissions []string, ttl time.Duration) (string, int64, error) {
	if resourceID == "" || subjectID == "" {
		return "", 0, ErrEmptyIdentifier
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if permissions == nil {
		permissions = []string{}
	}

	cap := Capability{
		ResourceID:  resourceID,
		SubjectID:   subjectID,
		Permissions: permissions,
		Expiration:  s.now().Add(ttl).UnixMilli(),
	}

	payload, err := json.Marshal(cap)
	if err != nil {
		return "", 0, fmt.Errorf("marshal capability: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(payload) + "." + s.signer.sign(payload)
	return token, cap.Expiration, nil
}

// Verify decodes and checks a capability token. Malformed base64, bad
// JSON, a missing delimiter, a stale expiration and a signature
// mismatch all return (nil, false); no failure distinguishes itself.
func (s *CapabilityService) Verify(token string) (*Capability, bool) {
	encoded, signature, found := strings.Cut(token, ".")
	if !found || encoded == "" || signature == "" {
		return nil, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}

	if !s.signer.matches(payload, signature) {
		return nil, false
	}

	var cap Capability
	if err := json.Unmarshal(payload, &cap); err != nil {
		return nil, false
	}
	if cap.ResourceID == "" || cap.SubjectID == "" || cap.Expiration == 0 {
		return nil, false
	}
	if s.now().UnixMilli() > cap.Expiration {
		return nil, false
	}

	return &cap, true
}
