package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/workspace"
)

// Smallest valid PNG header http.DetectContentType recognises.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIngestFilesSkipsNonImages(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := state.New(state.NewMemoryBackend())
	ws := workspace.Open(ctx, store, workspace.Options{})
	in := NewIngester(ws, 0)

	paths := []string{
		writeFile(t, dir, "flyer.png", pngBytes),
		writeFile(t, dir, "notes.txt", []byte("plain text")),
		writeFile(t, dir, "logo.svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)),
	}

	stored, err := in.IngestFiles(ctx, paths)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "flyer.png", stored[0].Name)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg==", stored[0].DataURL)
	assert.Equal(t, "logo.svg", stored[1].Name)

	// Persisted in file order.
	reopened := workspace.Open(ctx, store, workspace.Options{})
	assert.Equal(t, stored, reopened.Media().List())
}

func TestIngestFilesStopsOnMissingFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ws := workspace.Open(ctx, state.New(state.NewMemoryBackend()), workspace.Options{})

	stored, err := NewIngester(ws, 0).IngestFiles(ctx, []string{
		writeFile(t, dir, "a.png", pngBytes),
		filepath.Join(dir, "missing.png"),
		writeFile(t, dir, "b.png", pngBytes),
	})
	require.Error(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, 1, ws.Media().Len())
}

func TestIngestReaderSizeLimit(t *testing.T) {
	ctx := context.Background()
	ws := workspace.Open(ctx, state.New(state.NewMemoryBackend()), workspace.Options{})

	_, _, err := NewIngester(ws, 4).IngestReader(ctx, "big.png", bytes.NewReader(pngBytes))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, ws.Media().Len())
}

func TestIngestFilesHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ws := workspace.Open(context.Background(), state.New(state.NewMemoryBackend()), workspace.Options{})

	_, err := NewIngester(ws, 0).IngestFiles(ctx, []string{"whatever.png"})
	assert.ErrorIs(t, err, context.Canceled)
}
