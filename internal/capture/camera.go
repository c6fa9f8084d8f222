package capture

import (
	"context"
	"errors"
	"sync"

	"whiteboard/internal/domain"
)

var (
	ErrNoFrame      = errors.New("no frame received from camera feed")
	ErrCameraClosed = errors.New("camera is closed")
)

// FrameSink accepts frames from a feed that lives outside the process.
type FrameSink interface {
	Push(frame domain.EncodedImage) error
}

// FrameCamera stands in for a browser-side camera: the page keeps the live
// feed and posts the frame it grabbed together with the capture action.
type FrameCamera struct {
	mu     sync.Mutex
	frame  domain.EncodedImage
	closed bool
}

func NewFrameCamera() *FrameCamera {
	return &FrameCamera{}
}

func (c *FrameCamera) Push(frame domain.EncodedImage) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCameraClosed
	}
	c.frame = frame
	return nil
}

func (c *FrameCamera) Snapshot(ctx context.Context) (domain.EncodedImage, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrCameraClosed
	}
	if c.frame == "" {
		return "", ErrNoFrame
	}
	return c.frame, nil
}

func (c *FrameCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.frame = ""
	return nil
}

func (c *FrameCamera) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
