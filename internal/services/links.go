package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"whiteboard/internal/config"
)

// LinkSigner issues expiring download links for generated slide decks.
type LinkSigner struct {
	secret  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewLinkSigner(cfg config.Config) *LinkSigner {
	return &LinkSigner{
		secret:  cfg.SlideSecret,
		baseURL: cfg.BaseURL,
		ttl:     cfg.SlideTTL,
		now:     time.Now,
	}
}

func SlidePath(id string) string {
	return fmt.Sprintf("/slides/%s", id)
}

func (s *LinkSigner) Sign(slideID string) (string, time.Time) {
	expiresAt := s.now().Add(s.ttl)
	path := SlidePath(slideID)
	return fmt.Sprintf("%s%s?exp=%d&sig=%s", s.baseURL, path, expiresAt.Unix(), s.signature(path, expiresAt.Unix())), expiresAt
}

// Validate checks the signature only. Callers check expiry themselves.
func (s *LinkSigner) Validate(path string, expires int64, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(s.signature(path, expires)))
}

func (s *LinkSigner) signature(path string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	fmt.Fprintf(mac, "%s:%d", path, expires)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
