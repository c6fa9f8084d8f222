// Package capture turns a user's file drop or webcam snapshot into a single
// encoded image.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"whiteboard/internal/domain"
)

type Mode int

const (
	ModeSelect Mode = iota
	ModeWebcam
	ModePreview
)

func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeWebcam:
		return "webcam"
	case ModePreview:
		return "preview"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrNotImage     = errors.New("file is not an image")
	ErrTooLarge     = errors.New("image exceeds maximum size")
	ErrEmptyFile    = errors.New("image file is empty")
	ErrWrongMode    = errors.New("action not available in current capture mode")
	ErrNoCamera     = errors.New("no camera attached")
	ErrEmptyCapture = errors.New("camera returned no image")
)

// Camera is a live feed held while the widget is in ModeWebcam.
type Camera interface {
	Snapshot(ctx context.Context) (domain.EncodedImage, error)
	Close() error
}

// Widget is not safe for concurrent use; callers serialise access.
type Widget struct {
	mode      Mode
	preview   domain.EncodedImage
	camera    Camera
	shots     uint64
	maxBytes  int64
	onCapture func(domain.EncodedImage)
}

// NewWidget returns a widget in ModeSelect. onCapture runs once per
// successful drop or snapshot.
func NewWidget(maxBytes int64, onCapture func(domain.EncodedImage)) *Widget {
	return &Widget{mode: ModeSelect, maxBytes: maxBytes, onCapture: onCapture}
}

func (w *Widget) Mode() Mode                   { return w.mode }
func (w *Widget) Preview() domain.EncodedImage { return w.preview }
func (w *Widget) Camera() Camera               { return w.camera }

// Shots counts emitted images; it changes whenever the preview does.
func (w *Widget) Shots() uint64 { return w.shots }

// Drop reads one file fully and emits it. On error nothing is emitted and
// the widget is left as it was.
func (w *Widget) Drop(r io.Reader) error {
	if w.mode == ModeWebcam {
		return ErrWrongMode
	}

	img, err := FromFile(r, w.maxBytes)
	if err != nil {
		return err
	}

	w.emit(img)
	return nil
}

func (w *Widget) StartWebcam(cam Camera) error {
	if cam == nil {
		return ErrNoCamera
	}
	if w.mode != ModeSelect {
		return ErrWrongMode
	}
	w.camera = cam
	w.mode = ModeWebcam
	return nil
}

// Capture takes one snapshot. A failed snapshot keeps the feed active so the
// user can try again.
func (w *Widget) Capture(ctx context.Context) error {
	if w.mode != ModeWebcam || w.camera == nil {
		return ErrWrongMode
	}

	img, err := w.camera.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if img == "" {
		return ErrEmptyCapture
	}

	closeErr := w.releaseCamera()
	w.emit(img)
	return closeErr
}

func (w *Widget) Cancel() error {
	if w.mode != ModeWebcam {
		return ErrWrongMode
	}
	err := w.releaseCamera()
	w.mode = ModeSelect
	return err
}

// Reset clears the preview and returns to input selection. The last emitted
// image is not retracted.
func (w *Widget) Reset() error {
	err := w.releaseCamera()
	w.preview = ""
	w.mode = ModeSelect
	return err
}

func (w *Widget) emit(img domain.EncodedImage) {
	w.preview = img
	w.shots++
	w.mode = ModePreview
	if w.onCapture != nil {
		w.onCapture(img)
	}
}

func (w *Widget) releaseCamera() error {
	if w.camera == nil {
		return nil
	}
	cam := w.camera
	w.camera = nil
	if err := cam.Close(); err != nil {
		return fmt.Errorf("close camera: %w", err)
	}
	return nil
}

// FromFile reads r fully and encodes it as a data URL. Only image media
// types are accepted; the type is sniffed from the content.
func FromFile(r io.Reader, maxBytes int64) (domain.EncodedImage, error) {
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}

	mediaType := mimetype.Detect(data).String()
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mediaType)
	}

	return domain.EncodeImage(mediaType, data), nil
}
