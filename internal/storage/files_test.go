package storage

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenSlides(t *testing.T) {
	fm, err := NewFileManager(t.TempDir(), 1024)
	require.NoError(t, err)

	id, err := fm.SaveSlides(strings.NewReader("PK\x03\x04deck"))
	require.NoError(t, err)

	f, err := fm.OpenSlides(id)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04deck", string(data))

	require.NoError(t, fm.RemoveSlides(id))
	_, err = fm.OpenSlides(id)
	assert.ErrorIs(t, err, ErrSlideMissing)

	// Removing twice is not an error.
	assert.NoError(t, fm.RemoveSlides(id))
}

func TestSaveSlidesEnforcesLimit(t *testing.T) {
	dir := t.TempDir()
	fm, err := NewFileManager(dir, 8)
	require.NoError(t, err)

	_, err = fm.SaveSlides(bytes.NewReader(make([]byte, 64)))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(fm.slidesDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file must be removed")
}

func TestOpenSlidesRejectsPaths(t *testing.T) {
	fm, err := NewFileManager(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = fm.OpenSlides("../meta")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = fm.OpenSlides("")
	assert.ErrorIs(t, err, ErrInvalidID)
}
