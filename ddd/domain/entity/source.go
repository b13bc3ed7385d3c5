package entity

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MediaKind separates the two publish pipelines.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// KindForMime classifies a declared MIME type; the upload collaborator has
// already enforced its allow-list, so anything else is rejected outright.
func KindForMime(mime string) (MediaKind, bool) {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return MediaKindVideo, true
	case strings.HasPrefix(mime, "image/"):
		return MediaKindImage, true
	default:
		return "", false
	}
}

// SourceUpload is an immutable uploaded file. It is retained on disk so a
// later publish can re-derive without a fresh upload.
type SourceUpload struct {
	ID         string
	Path       string
	MIME       string
	Kind       MediaKind
	Target     string
	UploadedAt time.Time
}

// ItemID derives the deterministic catalog identity from a filename and its
// modification time, so repeated rebuilds produce stable ids.
func ItemID(filename string, mtime time.Time) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%d", filepath.Base(filename), mtime.Unix())))
	return hex.EncodeToString(sum[:])[:12]
}
