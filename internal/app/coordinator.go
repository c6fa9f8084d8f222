// Package app coordinates capture, extraction and slide generation for each
// visitor session.
//
// Status moves idle/success/error -> processing -> success|error on every
// capture and on every slide request. Each transition into processing takes
// a new sequence number; a result that comes back after a newer operation
// started is discarded, so a slow extraction can never overwrite a newer one.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"whiteboard/internal/capture"
	"whiteboard/internal/domain"
)

var (
	ErrNoContent = errors.New("no extracted content to generate slides from")
	ErrBusy      = errors.New("another operation is in progress")
	ErrStale     = errors.New("result superseded by a newer operation")
	ErrNoSession = errors.New("session not found")
)

type Extractor interface {
	Extract(ctx context.Context, image domain.EncodedImage) (domain.ExtractedContent, error)
	GenerateSlides(ctx context.Context, content domain.ExtractedContent) (domain.SlideReference, error)
}

// SlideStore releases generated decks once nothing references them.
type SlideStore interface {
	RemoveSlides(id string) error
}

type Options struct {
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

type Coordinator struct {
	extractor Extractor
	slides    SlideStore
	sessions  *Sessions
	log       *zap.Logger
	maxUpload int64

	bgCtx context.Context
	wg    sync.WaitGroup
}

func NewCoordinator(extractor Extractor, slides SlideStore, opts Options, log *zap.Logger) *Coordinator {
	c := &Coordinator{
		extractor: extractor,
		slides:    slides,
		log:       log.Named("app"),
		maxUpload: opts.MaxUploadBytes,
		bgCtx:     context.Background(),
	}
	c.sessions = NewSessions(opts.SessionTTL, c.initSession, c.releaseSession)
	return c
}

// Session returns the session for id, creating one if id is unknown.
func (c *Coordinator) Session(id string) SessionView {
	s := c.sessions.GetOrCreate(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

func (c *Coordinator) View(id string) (SessionView, error) {
	s, ok := c.sessions.Get(id)
	if !ok {
		return SessionView{}, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Capture runs one extraction for image and waits for it.
func (c *Coordinator) Capture(ctx context.Context, id string, image domain.EncodedImage) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	seq := c.beginExtract(s)
	s.mu.Unlock()

	return c.finishExtract(ctx, s, seq, image)
}

// Upload feeds a dropped file through the session's capture widget. A file
// that cannot be read or is not an image produces no capture; the error is
// returned for logging only.
func (c *Coordinator) Upload(id string, r io.Reader) error {
	return c.withWidget(id, func(s *Session) error {
		return s.widget.Drop(r)
	})
}

func (c *Coordinator) StartWebcam(id string, cam capture.Camera) error {
	return c.withWidget(id, func(s *Session) error {
		return s.widget.StartWebcam(cam)
	})
}

// Snapshot hands frame to the active feed, if it accepts frames, and takes
// the picture.
func (c *Coordinator) Snapshot(ctx context.Context, id string, frame domain.EncodedImage) error {
	return c.withWidget(id, func(s *Session) error {
		if frame != "" {
			sink, ok := s.widget.Camera().(capture.FrameSink)
			if !ok {
				return capture.ErrWrongMode
			}
			if err := sink.Push(frame); err != nil {
				return err
			}
		}
		return s.widget.Capture(ctx)
	})
}

func (c *Coordinator) CancelWebcam(id string) error {
	return c.withWidget(id, func(s *Session) error {
		return s.widget.Cancel()
	})
}

func (c *Coordinator) ResetCapture(id string) error {
	return c.withWidget(id, func(s *Session) error {
		return s.widget.Reset()
	})
}

// GenerateSlides requests a deck for the stored content and waits for it.
func (c *Coordinator) GenerateSlides(ctx context.Context, id string) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	seq, content, err := c.beginGenerate(s)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	return c.finishGenerate(ctx, s, seq, content)
}

// SubmitGenerateSlides validates and enters processing synchronously, then
// generates in the background.
func (c *Coordinator) SubmitGenerateSlides(id string) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	seq, content, err := c.beginGenerate(s)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	c.goBackground(func(ctx context.Context) {
		_ = c.finishGenerate(ctx, s, seq, content)
	})
	return nil
}

// Wait blocks until background work finishes or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for background work and then releases every session.
func (c *Coordinator) Close(ctx context.Context) error {
	err := c.Wait(ctx)
	c.sessions.Flush()
	return err
}

func (c *Coordinator) lookup(id string) (*Session, error) {
	s, ok := c.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return s, nil
}

func (c *Coordinator) withWidget(id string, fn func(*Session) error) error {
	s, err := c.lookup(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s); err != nil {
		c.log.Warn("capture action produced no image", zap.String("session", id), zap.Error(err))
		return err
	}
	return nil
}

// initSession wires the widget output to extraction. The callback runs from
// widget methods, which are only called with s.mu held.
func (c *Coordinator) initSession(s *Session) {
	s.widget = capture.NewWidget(c.maxUpload, func(image domain.EncodedImage) {
		seq := c.beginExtract(s)
		c.goBackground(func(ctx context.Context) {
			_ = c.finishExtract(ctx, s, seq, image)
		})
	})
}

func (c *Coordinator) releaseSession(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.widget.Reset(); err != nil {
		c.log.Warn("release camera", zap.String("session", s.ID), zap.Error(err))
	}
	if s.slides != nil {
		c.removeSlides(s.slides.ID)
		s.slides = nil
	}
	c.log.Debug("session released", zap.String("session", s.ID))
}

// beginExtract requires s.mu.
func (c *Coordinator) beginExtract(s *Session) uint64 {
	s.seq++
	s.status = domain.Processing(domain.MessageExtracting)
	return s.seq
}

func (c *Coordinator) finishExtract(ctx context.Context, s *Session, seq uint64, image domain.EncodedImage) error {
	start := time.Now()
	content, err := c.extractor.Extract(ctx, image)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		c.log.Info("discarding stale extraction", zap.String("session", s.ID), zap.Uint64("seq", seq), zap.Uint64("latest", s.seq))
		return ErrStale
	}

	if err != nil {
		c.log.Error("extraction failed", zap.String("session", s.ID), zap.Error(err))
		s.status = domain.Failed(domain.MessageExtractFailed)
		return err
	}

	s.content = &content
	s.status = domain.Succeeded()
	c.log.Info("content extracted", zap.String("session", s.ID), zap.Duration("took", time.Since(start)))
	return nil
}

// beginGenerate requires s.mu.
func (c *Coordinator) beginGenerate(s *Session) (uint64, domain.ExtractedContent, error) {
	if s.content == nil {
		return 0, domain.ExtractedContent{}, ErrNoContent
	}
	if s.status.IsProcessing() {
		return 0, domain.ExtractedContent{}, ErrBusy
	}

	s.seq++
	s.status = domain.Processing(domain.MessageGenerating)
	return s.seq, *s.content, nil
}

func (c *Coordinator) finishGenerate(ctx context.Context, s *Session, seq uint64, content domain.ExtractedContent) error {
	ref, err := c.extractor.GenerateSlides(ctx, content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		c.log.Info("discarding stale slide deck", zap.String("session", s.ID), zap.Uint64("seq", seq), zap.Uint64("latest", s.seq))
		if err == nil {
			c.removeSlides(ref.ID)
		}
		return ErrStale
	}

	if err != nil {
		c.log.Error("slide generation failed", zap.String("session", s.ID), zap.Error(err))
		s.status = domain.Failed(domain.MessageGenerateFailed)
		return err
	}

	if s.slides != nil {
		c.removeSlides(s.slides.ID)
	}
	s.slides = &ref
	s.status = domain.Succeeded()
	c.log.Info("slides generated", zap.String("session", s.ID), zap.String("slide_id", ref.ID))
	return nil
}

// OwnsSlides reports whether id is the current deck of the session.
func (c *Coordinator) OwnsSlides(sessionID, slideID string) bool {
	s, ok := c.sessions.Get(sessionID)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slides != nil && s.slides.ID == slideID
}

func (c *Coordinator) removeSlides(id string) {
	if c.slides == nil || id == "" {
		return
	}
	if err := c.slides.RemoveSlides(id); err != nil {
		c.log.Warn("remove slide deck", zap.String("slide_id", id), zap.Error(err))
	}
}

func (c *Coordinator) goBackground(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.bgCtx)
	}()
}
