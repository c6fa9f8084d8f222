package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"whiteboard/internal/capture"
	"whiteboard/internal/domain"
)

// Session is the state one visitor works on. All fields are guarded by mu.
type Session struct {
	ID string

	mu      sync.Mutex
	content *domain.ExtractedContent
	status  domain.ProcessingStatus
	slides  *domain.SlideReference
	widget  *capture.Widget
	seq     uint64
}

// SessionView is a consistent copy of a session for rendering.
type SessionView struct {
	ID          string                   `json:"id"`
	Content     *domain.ExtractedContent `json:"content"`
	Status      domain.ProcessingStatus  `json:"status"`
	Slides      *domain.SlideReference   `json:"slides,omitempty"`
	CaptureMode string                   `json:"captureMode"`
	Preview     domain.EncodedImage      `json:"-"`
	PreviewRev  uint64                   `json:"-"`
	CanGenerate bool                     `json:"canGenerate"`
}

func (s *Session) view() SessionView {
	v := SessionView{
		ID:          s.ID,
		Status:      s.status,
		CaptureMode: s.widget.Mode().String(),
		Preview:     s.widget.Preview(),
		PreviewRev:  s.widget.Shots(),
		CanGenerate: s.canGenerate(),
	}
	if s.content != nil {
		c := *s.content
		v.Content = &c
	}
	if s.slides != nil {
		ref := *s.slides
		v.Slides = &ref
	}
	return v
}

func (s *Session) canGenerate() bool {
	return s.content != nil && !s.status.IsProcessing()
}

// Sessions keeps sessions in memory with a sliding expiry. evicted runs for
// every session that expires or is deleted.
type Sessions struct {
	cache *cache.Cache
	ttl   time.Duration
	init  func(*Session)
}

func NewSessions(ttl time.Duration, init func(*Session), evicted func(*Session)) *Sessions {
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}

	c := cache.New(ttl, cleanup)
	if evicted != nil {
		c.OnEvicted(func(_ string, v interface{}) {
			if s, ok := v.(*Session); ok {
				evicted(s)
			}
		})
	}
	return &Sessions{cache: c, ttl: ttl, init: init}
}

func (r *Sessions) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*Session)
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// GetOrCreate returns the session for id, creating a fresh one under a new id
// when id is unknown.
func (r *Sessions) GetOrCreate(id string) *Session {
	if s, ok := r.Get(id); ok {
		return s
	}

	s := &Session{ID: uuid.NewString(), status: domain.Idle()}
	if r.init != nil {
		r.init(s)
	}
	if err := r.cache.Add(s.ID, s, cache.DefaultExpiration); err != nil {
		// uuid collision; the existing session wins
		existing, _ := r.Get(s.ID)
		return existing
	}
	return s
}

func (r *Sessions) Delete(id string) {
	r.cache.Delete(id)
}

func (r *Sessions) Count() int {
	return r.cache.ItemCount()
}

// DeleteExpired runs eviction now instead of waiting for the janitor.
func (r *Sessions) DeleteExpired() {
	r.cache.DeleteExpired()
}

// Flush evicts every session, including expired ones the janitor has not
// collected yet.
func (r *Sessions) Flush() {
	r.cache.DeleteExpired()
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
