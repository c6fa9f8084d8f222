package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileManager keeps generated slide decks on local disk until their session
// ends. Files are addressed by an opaque id, never by a caller-supplied path.
type FileManager struct {
	baseDir       string
	slidesDir     string
	maxSlideBytes int64
}

const slideExt = ".pptx"

var (
	ErrTooLarge     = errors.New("slide deck exceeds maximum size")
	ErrInvalidID    = errors.New("invalid slide id")
	ErrSlideMissing = errors.New("slide deck not found")
)

func NewFileManager(baseDir string, maxSlideBytes int64) (*FileManager, error) {
	fm := &FileManager{
		baseDir:       baseDir,
		slidesDir:     filepath.Join(baseDir, "slides"),
		maxSlideBytes: maxSlideBytes,
	}

	dirs := []string{fm.baseDir, fm.slidesDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	return fm, nil
}

// SaveSlides streams r to a new file and returns its id.
func (fm *FileManager) SaveSlides(r io.Reader) (string, error) {
	id := uuid.NewString()
	if err := fm.writeWithLimit(fm.SlidePath(id), r); err != nil {
		return "", err
	}
	return id, nil
}

func (fm *FileManager) SlidePath(id string) string {
	return filepath.Join(fm.slidesDir, id+slideExt)
}

// OpenSlides opens a stored deck for reading.
func (fm *FileManager) OpenSlides(id string) (*os.File, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(fm.SlidePath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSlideMissing, id)
	}
	if err != nil {
		return nil, fmt.Errorf("open slide deck: %w", err)
	}
	return f, nil
}

func (fm *FileManager) RemoveSlides(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(fm.SlidePath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove slide deck: %w", err)
	}
	return nil
}

func (fm *FileManager) writeWithLimit(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create slide file: %w", err)
	}

	cleanup := func(err error) error {
		out.Close()
		os.Remove(path)
		return err
	}

	total := int64(0)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if fm.maxSlideBytes > 0 && total > fm.maxSlideBytes {
				return cleanup(ErrTooLarge)
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return cleanup(fmt.Errorf("write slide file: %w", werr))
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return cleanup(fmt.Errorf("read slide content: %w", err))
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close slide file: %w", err)
	}

	return nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return nil
}
