package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid GIF header plus trailer
var gif = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")

func TestIngestEncodesDataURIs(t *testing.T) {
	urls, err := Ingest([]File{
		{Name: "a.png", Type: "image/png", Data: []byte("png-bytes")},
		{Name: "b.mp4", Type: "video/mp4", Data: []byte("mp4-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data:image/png;base64,cG5nLWJ5dGVz",
		"data:video/mp4;base64,bXA0LWJ5dGVz",
	}, urls)
}

func TestIngestRejectsMoreThanThree(t *testing.T) {
	f := File{Name: "x.gif", Type: "image/gif", Data: gif}
	_, err := Ingest([]File{f, f, f, f})
	assert.ErrorIs(t, err, ErrTooManyFiles)

	urls, err := Ingest([]File{f, f, f})
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestOneInvalidFileRejectsBatch(t *testing.T) {
	_, err := Ingest([]File{
		{Name: "ok.jpg", Type: "image/jpeg", Data: []byte("x")},
		{Name: "notes.pdf", Type: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidType))
}

func TestUndeclaredTypeIsDetected(t *testing.T) {
	urls, err := Ingest([]File{{Name: "anim", Data: gif}})
	require.NoError(t, err)
	assert.Contains(t, urls[0], "data:image/gif;base64,")

	_, err = Ingest([]File{{Name: "text", Data: []byte("just text")}})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.gif")
	require.NoError(t, os.WriteFile(path, gif, 0o600))

	f, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pic.gif", f.Name)
	assert.Empty(t, f.Type)
}

func TestURLClassification(t *testing.T) {
	assert.True(t, IsImageURL("data:image/png;base64,AA=="))
	assert.False(t, IsImageURL("data:video/mp4;base64,AA=="))
	assert.True(t, IsImageURL("https://cdn.x.io/a/photo.JPG"))
	assert.True(t, IsVideoURL("https://cdn.x.io/clip.webm"))
	assert.False(t, IsVideoURL("https://cdn.x.io/clip.mov"))
	assert.True(t, Allowed("image/png; charset=binary"))
	assert.False(t, Allowed("image/svg+xml"))
}
