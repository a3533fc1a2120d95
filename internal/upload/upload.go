// Package upload validates media files and forwards them to the backend.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Kind is the class of media being uploaded.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Size limits per kind.
const (
	MaxImageBytes = 5 << 20
	MaxVideoBytes = 50 << 20
)

type rule struct {
	maxBytes   int64
	extensions []string
	mimeTypes  []string
	mimePrefix string
	path       string
}

var rules = map[Kind]rule{
	KindImage: {
		maxBytes:   MaxImageBytes,
		extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		mimePrefix: "image/",
		path:       "/api/storyboard/upload-image",
	},
	KindVideo: {
		maxBytes:   MaxVideoBytes,
		extensions: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
		mimeTypes:  []string{"video/mp4", "video/quicktime", "video/x-msvideo", "video/x-matroska", "video/webm"},
		path:       "/api/storyboard/upload-video",
	},
}

// ParseKind parses "image" or "video".
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rules[k]; !ok {
		return "", fmt.Errorf("upload kind %q: %w", s, ErrUnsupportedType)
	}
	return k, nil
}

// MaxBytes returns the size limit of kind, or 0 if kind is unknown.
func MaxBytes(kind Kind) int64 { return rules[kind].maxBytes }

// Validate checks a file before upload. A file is accepted when either its
// extension or its MIME type is on the allow-list for kind.
func Validate(kind Kind, filename, contentType string, size int64) error {
	r, ok := rules[kind]
	if !ok {
		return fmt.Errorf("upload kind %q: %w", kind, ErrUnsupportedType)
	}
	if size > r.maxBytes {
		return fmt.Errorf("%s is %d bytes, limit is %d MB: %w", filename, size, r.maxBytes>>20, ErrTooLarge)
	}
	if !allowed(r, filename, contentType) {
		return fmt.Errorf("%s (%s), accepted: %s: %w", filename, contentType, strings.Join(r.extensions, " "), ErrUnsupportedType)
	}
	return nil
}

func allowed(r rule, filename, contentType string) bool {
	if slices.Contains(r.extensions, strings.ToLower(filepath.Ext(filename))) {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" {
		return false
	}
	if r.mimePrefix != "" && strings.HasPrefix(ct, r.mimePrefix) {
		return true
	}
	return slices.Contains(r.mimeTypes, ct)
}
