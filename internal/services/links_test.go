package services

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard/internal/config"
)

func TestLinkSignerRoundTrip(t *testing.T) {
	signer := NewLinkSigner(config.Config{
		BaseURL:     "http://localhost:8080",
		SlideSecret: "secret",
		SlideTTL:    time.Hour,
	})
	fixed := time.Unix(1_700_000_000, 0)
	signer.now = func() time.Time { return fixed }

	raw, expiresAt := signer.Sign("abc")
	assert.Equal(t, fixed.Add(time.Hour), expiresAt)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/slides/abc", u.Path)

	exp, err := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	require.NoError(t, err)
	assert.True(t, signer.Validate(u.Path, exp, u.Query().Get("sig")))

	assert.False(t, signer.Validate("/slides/other", exp, u.Query().Get("sig")))
	assert.False(t, signer.Validate(u.Path, exp+1, u.Query().Get("sig")))
}

func TestLinkSignerRejectsForeignSecret(t *testing.T) {
	cfg := config.Config{BaseURL: "http://localhost:8080", SlideSecret: "secret", SlideTTL: time.Hour}
	signer := NewLinkSigner(cfg)
	cfg.SlideSecret = "other"
	foreign := NewLinkSigner(cfg)

	raw, expiresAt := foreign.Sign("abc")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.False(t, signer.Validate(u.Path, expiresAt.Unix(), u.Query().Get("sig")))
	assert.True(t, foreign.Validate(u.Path, expiresAt.Unix(), u.Query().Get("sig")))
	assert.NotContains(t, u.Query().Get("sig"), "=")
}
