// Package mediastore resolves logical media filenames against configured
// filesystem roots and prepares full or partial byte streams.
package mediastore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Sentinel kinds for media errors.
var (
	ErrNotFound      = errors.New("media file not found")
	ErrUnsafeName    = errors.New("unsafe media filename")
	ErrBadExtension  = errors.New("disallowed audio extension")
	ErrInvalidRange  = errors.New("malformed range header")
	ErrUnsatisfiable = errors.New("requested range not satisfiable")
)

// VideoContentType is fixed; the catalog stores one video per song number
// and all of them are mp4.
const VideoContentType = "video/mp4"

// audioTypes is the extension allow-list with its MIME mapping.
var audioTypes = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",
}

// Filenames come straight from a URL path segment, so they are untrusted.
// Letters (including accented ones), digits, spaces and common punctuation
// are allowed; separators and parent-directory sequences are not.
var safeName = regexp.MustCompile(`^[\p{L}\p{N} ._()\[\]&',!+-]+$`)

// Store resolves filenames below the configured video and sound roots.
// The roots are read-only from the server's perspective.
type Store struct {
	videoRoot string
	soundRoot string
}

// New creates a Store over the given roots.
func New(videoRoot, soundRoot string) *Store {
	return &Store{videoRoot: videoRoot, soundRoot: soundRoot}
}

// sanitize rejects anything that could escape the storage root.
func sanitize(name string) error {
	if name == "" || strings.Contains(name, "..") || !safeName.MatchString(name) {
		return ErrUnsafeName
	}
	return nil
}

// OpenVideo opens the named video file. The caller owns the handle.
func (s *Store) OpenVideo(name string) (*os.File, os.FileInfo, error) {
	if err := sanitize(name); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(s.videoRoot, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open video: %w", err)
	}
	return f, info, nil
}

// OpenSound opens the named audio file and reports its MIME type. The
// existence check runs before the extension check, so a missing file is a
// not-found even when its extension would be rejected.
func (s *Store) OpenSound(name string) (*os.File, os.FileInfo, string, error) {
	if err := sanitize(name); err != nil {
		return nil, nil, "", err
	}
	path := filepath.Join(s.soundRoot, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, "", ErrNotFound
	}

	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := audioTypes[ext]
	if !ok {
		return nil, nil, "", ErrBadExtension
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open sound: %w", err)
	}
	return f, info, mime, nil
}

// ByteRange is a closed byte window [Start, End] within a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the window.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// ContentRange renders the Content-Range header value for a file of the
// given total size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a "bytes=start-end" header against a file of the
// given size. Start is required; a missing end defaults to size-1, and an
// end beyond the file is clamped. A start at or past the end of the file
// is unsatisfiable.
func ParseRange(header string, size int64) (ByteRange, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, ErrInvalidRange
	}
	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, ErrInvalidRange
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, ErrInvalidRange
	}

	end := size - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil || end < 0 {
			return ByteRange{}, ErrInvalidRange
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size || start > end {
		return ByteRange{}, ErrUnsatisfiable
	}
	return ByteRange{Start: start, End: end}, nil
}
