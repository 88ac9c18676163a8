package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal PNG signature plus IHDR chunk header.
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00,
}

func TestSaveAcceptsPNG(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media", 1024)
	require.NoError(t, err)

	url, err := store.Save(context.Background(), bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	_, err = os.Stat(filepath.Join(dir, filepath.Base(url)))
	assert.NoError(t, err)
}

func TestSaveRejectsText(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media", 1024)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrInvalidContentType)
}

func TestSaveRejectsOversize(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media", 16)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSaveRejectsEmpty(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media", 16)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmptyFile)
}
