package http

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"signage-service/ddd/domain/layout"
	"signage-service/pkg/errno"
)

// variantName matches derivative filenames whose dimensions are baked into
// the name; such files never change in place and may be cached forever.
var variantName = regexp.MustCompile(`(_w\d+\.|_\d+p\.)`)

// MediaController serves derivative files with byte-range, conditional and
// cache-class semantics.
type MediaController struct {
	layout layout.Layout
}

func NewMediaController(lay layout.Layout) *MediaController {
	return &MediaController{layout: lay}
}

// Serve handles GET and HEAD for everything under the media root.
func (ctl *MediaController) Serve(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	path, ok := ctl.resolve(rel)
	if !ok {
		fail(c, errno.ErrPathOutsideRoot)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		fail(c, errno.ErrNotFound)
		return
	}

	size := info.Size()
	modTime := info.ModTime().UTC()
	etag := fmt.Sprintf(`W/"%x-%x"`, size, modTime.UnixNano())

	c.Header("Accept-Ranges", "bytes")
	c.Header("ETag", etag)
	c.Header("Last-Modified", modTime.Format(http.TimeFormat))
	c.Header("Cache-Control", cacheControlFor(rel))
	c.Header("Content-Type", contentTypeFor(path))

	if notModified(c.Request, etag, modTime) {
		c.Status(http.StatusNotModified)
		return
	}

	start, end, partial, satisfiable := resolveRange(c.Request, etag, modTime, size)
	if !satisfiable {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	status := http.StatusOK
	length := size
	if partial {
		status = http.StatusPartialContent
		length = end - start + 1
		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	c.Header("Content-Length", strconv.FormatInt(length, 10))

	if c.Request.Method == http.MethodHead {
		c.Status(status)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		fail(c, errno.ErrNotFound)
		return
	}
	defer f.Close()
	if partial {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			fail(c, errno.ErrInternalServer)
			return
		}
	}
	c.Status(status)
	io.CopyN(c.Writer, f, length)
}

// resolve maps the request path into the media root, rejecting anything
// that escapes it.
func (ctl *MediaController) resolve(rel string) (string, bool) {
	if rel == "" || strings.Contains(rel, "\x00") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", false
		}
	}
	cleaned := filepath.Clean("/" + filepath.FromSlash(rel))
	path := filepath.Join(ctl.layout.Root, cleaned)
	root := filepath.Clean(ctl.layout.Root)
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

// notModified applies If-None-Match first, then If-Modified-Since.
func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if match := r.Header.Get("If-None-Match"); match != "" {
		for _, candidate := range strings.Split(match, ",") {
			if strings.TrimSpace(candidate) == etag {
				return true
			}
		}
		return false
	}
	if since := r.Header.Get("If-Modified-Since"); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			return !modTime.Truncate(time.Second).After(t)
		}
	}
	return false
}

// resolveRange interprets a single-range Range header, honoring If-Range.
// Returns partial=false for no (or ignorable) range, satisfiable=false when
// a syntactically valid range cannot be served and 416 is due.
func resolveRange(r *http.Request, etag string, modTime time.Time, size int64) (start, end int64, partial, satisfiable bool) {
	spec := r.Header.Get("Range")
	if spec == "" || !strings.HasPrefix(spec, "bytes=") {
		return 0, 0, false, true
	}
	// A stale If-Range validator downgrades to a full response instead of
	// serving bytes from a file the client no longer holds.
	if ir := r.Header.Get("If-Range"); ir != "" {
		if t, err := http.ParseTime(ir); err == nil {
			if modTime.Truncate(time.Second).After(t) {
				return 0, 0, false, true
			}
		} else if ir != etag {
			return 0, 0, false, true
		}
	}

	spec = strings.TrimPrefix(spec, "bytes=")
	if strings.Contains(spec, ",") {
		// Multipart ranges are not supported; serve the full body.
		return 0, 0, false, true
	}
	// A malformed spec invalidates the whole header, which is then ignored
	// and the full body served. 416 is reserved for well-formed ranges that
	// fall outside the representation.
	dash := strings.Index(spec, "-")
	if dash < 0 {
		return 0, 0, false, true
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// Suffix form: last N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		switch {
		case err != nil || n < 0:
			return 0, 0, false, true
		case n == 0:
			return 0, 0, false, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, true
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false, true
	}
	if start >= size {
		return 0, 0, false, false
	}
	end = size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, false, true
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, true, true
}

// cacheControlFor picks the cache class from the served path: playlists and
// segments revalidate aggressively, the latest alias must revalidate,
// dimension-stamped derivatives are immutable, everything else gets a short
// shared TTL.
func cacheControlFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "latest/"):
		return "no-cache, must-revalidate"
	case strings.HasSuffix(rel, ".m3u8"), strings.HasSuffix(rel, ".ts"):
		return "no-cache"
	case variantName.MatchString(rel):
		return "public, max-age=31536000, immutable"
	default:
		return "public, max-age=60"
	}
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
