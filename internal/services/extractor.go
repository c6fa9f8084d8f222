package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/config"
	"whiteboard/internal/domain"
	"whiteboard/internal/storage"
)

const (
	extractPath        = "/extract"
	generateSlidesPath = "/generate-slides"
	maxErrorBody       = 4 * 1024
)

// ExtractorService talks to the external extraction service. It does not
// retry, cache or classify failures; every failure is returned as an error.
type ExtractorService struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
	files      *storage.FileManager
	links      *LinkSigner
	log        *zap.Logger
}

func NewExtractorService(cfg config.Config, files *storage.FileManager, links *LinkSigner, log *zap.Logger) *ExtractorService {
	return &ExtractorService{
		baseURL:    cfg.ExtractorURL,
		reqTimeout: cfg.ExtractorTimeout,
		httpClient: &http.Client{},
		files:      files,
		links:      links,
		log:        log.Named("extractor"),
	}
}

func (s *ExtractorService) Extract(ctx context.Context, image domain.EncodedImage) (domain.ExtractedContent, error) {
	payload := struct {
		Image domain.EncodedImage `json:"image"`
	}{Image: image}

	resp, cancel, err := s.postJSON(ctx, extractPath, payload)
	if err != nil {
		return domain.ExtractedContent{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	var decoded *domain.ExtractedContent
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.ExtractedContent{}, fmt.Errorf("decode extract response: %w", err)
	}
	if decoded == nil {
		return domain.ExtractedContent{}, errors.New("decode extract response: empty document")
	}
	content := *decoded

	s.log.Debug("content extracted",
		zap.Int("text", len(content.Text)),
		zap.Int("equations", len(content.Equations)),
		zap.Int("diagrams", len(content.Diagrams)))

	return content, nil
}

// GenerateSlides posts the content and keeps the returned document on disk,
// handing back a signed reference the browser can download directly.
func (s *ExtractorService) GenerateSlides(ctx context.Context, content domain.ExtractedContent) (domain.SlideReference, error) {
	resp, cancel, err := s.postJSON(ctx, generateSlidesPath, content)
	if err != nil {
		return domain.SlideReference{}, err
	}
	defer cancel()
	defer resp.Body.Close()

	id, err := s.files.SaveSlides(resp.Body)
	if err != nil {
		return domain.SlideReference{}, fmt.Errorf("store slide deck: %w", err)
	}

	url, expiresAt := s.links.Sign(id)
	s.log.Debug("slide deck stored", zap.String("slide_id", id))

	return domain.SlideReference{
		ID:        id,
		Filename:  domain.DefaultSlideFilename,
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

// postJSON returns the response with an open body; the caller closes it and
// then calls cancel.
func (s *ExtractorService) postJSON(ctx context.Context, path string, payload any) (*http.Response, context.CancelFunc, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, nil, fmt.Errorf("encode %s payload: %w", path, err)
	}

	cancel := context.CancelFunc(func() {})
	if s.reqTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.reqTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, buf)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("extractor request %s failed: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("extractor %s: status %d body %s", path, resp.StatusCode, string(bytes.TrimSpace(body)))
	}

	return resp, cancel, nil
}
