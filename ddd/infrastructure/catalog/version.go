package catalog

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"signage-service/ddd/domain/layout"
	"signage-service/pkg/logger"
)

const versionFile = "catalog_version"

// VersionSource hands out strictly increasing manifest versions based on
// wall-clock milliseconds, persisted so restarts never go backwards even
// when the clock does.
type VersionSource struct {
	mu      sync.Mutex
	path    string
	current int64
}

func NewVersionSource(lay layout.Layout) *VersionSource {
	v := &VersionSource{path: filepath.Join(lay.Root, versionFile)}
	if data, err := os.ReadFile(v.path); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			v.current = n
		}
	}
	return v
}

// Next returns the next version: current wall time in milliseconds, bumped
// past the previous value when publishes land within the same millisecond.
func (v *VersionSource) Next() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := time.Now().UnixMilli()
	if next <= v.current {
		next = v.current + 1
	}
	v.current = next
	if err := os.WriteFile(v.path, []byte(strconv.FormatInt(next, 10)), 0o644); err != nil {
		logger.Warnf("persist catalog version failed: %v", err)
	}
	return next
}

// Current returns the last issued version, zero before the first publish.
func (v *VersionSource) Current() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}
