// Package media turns user-selected files into inline data URIs for post
// edits. Files are encoded entirely in memory; there is no size limit.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxFiles is the largest batch accepted by Ingest.
const MaxFiles = 3

var (
	// ErrTooManyFiles rejects a batch larger than MaxFiles.
	ErrTooManyFiles = errors.New("You can upload a maximum of 3 files")
	// ErrInvalidType rejects a batch containing a file of a type not allowed.
	ErrInvalidType = errors.New("Please select valid image (JPEG, PNG, GIF) or video (MP4, WebM) files")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"video/mp4":  true,
	"video/webm": true,
}

// File is one selected file. Type is the declared media type (as reported
// by the browser or form part); when empty it is detected from Data.
type File struct {
	Name string
	Type string
	Data []byte
}

// Allowed reports whether mediaType is one of the accepted image/video types.
// Parameters such as "; charset=" are ignored.
func Allowed(mediaType string) bool {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return allowedTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// Ingest validates the batch and returns one data URI per file, in order.
// Any invalid file rejects the whole batch.
func Ingest(files []File) ([]string, error) {
	if len(files) > MaxFiles {
		return nil, ErrTooManyFiles
	}
	types := make([]string, len(files))
	for i, f := range files {
		t := f.Type
		if t == "" {
			t = mimetype.Detect(f.Data).String()
		}
		if !Allowed(t) {
			return nil, fmt.Errorf("%w: %s (%s)", ErrInvalidType, f.Name, t)
		}
		types[i] = t
	}

	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = DataURI(types[i], f.Data)
	}
	return urls, nil
}

// DataURI encodes data as a base64 data URI of mediaType.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadFile loads a file from disk with an undeclared type, so Ingest
// detects it from content.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read media file: %w", err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// IsImageURL reports whether url points at (or inlines) an image.
func IsImageURL(url string) bool {
	if strings.HasPrefix(url, "data:") {
		return strings.HasPrefix(url, "data:image/")
	}
	return hasExt(url, ".jpeg", ".jpg", ".png", ".gif")
}

// IsVideoURL reports whether url points at (or inlines) a video.
func IsVideoURL(url string) bool {
	if strings.HasPrefix(url, "data:") {
		return strings.HasPrefix(url, "data:video/")
	}
	return hasExt(url, ".mp4", ".webm")
}

func hasExt(url string, exts ...string) bool {
	lower := strings.ToLower(url)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
