package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whiteboard/internal/config"
	"whiteboard/internal/domain"
	"whiteboard/internal/storage"
)

func newTestExtractor(t *testing.T, handler http.HandlerFunc) (*ExtractorService, *storage.FileManager) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		BaseURL:      "http://localhost:8080",
		ExtractorURL: srv.URL,
		SlideSecret:  "secret",
		SlideTTL:     time.Minute,
	}

	fm, err := storage.NewFileManager(t.TempDir(), 1024*1024)
	require.NoError(t, err)

	return NewExtractorService(cfg, fm, NewLinkSigner(cfg), zap.NewNop()), fm
}

func TestExtractSendsImageAndReturnsContentVerbatim(t *testing.T) {
	var gotBody map[string]string
	svc, _ := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":["Hello"],"equations":[],"diagrams":[{"type":"graph","svgContent":"<svg></svg>"}]}`)
	})

	content, err := svc.Extract(context.Background(), "data:image/png;base64,AAA")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"image": "data:image/png;base64,AAA"}, gotBody)
	assert.Equal(t, []string{"Hello"}, content.Text)
	assert.Empty(t, content.Equations)
	require.Len(t, content.Diagrams, 1)
	assert.Equal(t, domain.DiagramGraph, content.Diagrams[0].Type)
	assert.Equal(t, "<svg></svg>", content.Diagrams[0].SVGContent)
}

func TestExtractFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model crashed", http.StatusInternalServerError)
		},
		"bad request": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid image", http.StatusBadRequest)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"text": [`)
		},
		"null body": func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "null")
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestExtractor(t, handler)
			_, err := svc.Extract(context.Background(), "data:image/png;base64,AAA")
			assert.Error(t, err)
		})
	}
}

func TestExtractNetworkFailure(t *testing.T) {
	svc, _ := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {})
	svc.baseURL = "http://127.0.0.1:1"

	_, err := svc.Extract(context.Background(), "data:image/png;base64,AAA")
	assert.Error(t, err)
}

func TestExtractHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	svc, _ := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	svc.reqTimeout = 50 * time.Millisecond

	_, err := svc.Extract(context.Background(), "data:image/png;base64,AAA")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateSlidesStoresDocument(t *testing.T) {
	content := domain.ExtractedContent{
		Text:      []string{"Hello"},
		Equations: []string{"E = mc^2"},
		Diagrams:  []domain.Diagram{},
	}

	var got domain.ExtractedContent
	svc, fm := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-slides", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/octet-stream")
		io.WriteString(w, "PK\x03\x04slides")
	})

	ref, err := svc.GenerateSlides(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, content, got)
	assert.Equal(t, domain.DefaultSlideFilename, ref.Filename)
	assert.True(t, strings.HasPrefix(ref.URL, "http://localhost:8080/slides/"+ref.ID+"?exp="), ref.URL)
	assert.WithinDuration(t, time.Now().Add(time.Minute), ref.ExpiresAt, 5*time.Second)

	f, err := fm.OpenSlides(ref.ID)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04slides", string(data))
}

func TestGenerateSlidesFailure(t *testing.T) {
	svc, _ := newTestExtractor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := svc.GenerateSlides(context.Background(), domain.ExtractedContent{Text: []string{"x"}})
	assert.Error(t, err)
}
