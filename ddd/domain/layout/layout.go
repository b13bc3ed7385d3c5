// Package layout fixes the on-disk naming scheme for sources and
// derivatives. Every derivative path is deterministic per
// (item, kind, orientation, variant), which is what makes generation
// memoizable and repeated publishes idempotent.
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"signage-service/ddd/domain/vo"
)

// Layout resolves paths under the media root.
type Layout struct {
	Root string
}

// New creates a layout rooted at dir.
func New(root string) Layout {
	return Layout{Root: root}
}

// TargetDir is the directory holding one audience target's items.
func (l Layout) TargetDir(target string) string {
	return filepath.Join(l.Root, target)
}

// ItemDir is the directory holding one published item and its derivatives.
func (l Layout) ItemDir(target, itemID string) string {
	return filepath.Join(l.Root, target, itemID)
}

// SourcePath is the immutable copy of the upload, kept for re-derivation.
func (l Layout) SourcePath(target, itemID, ext string) string {
	return filepath.Join(l.ItemDir(target, itemID), "source"+ext)
}

// OrientationDir holds one orientation's derivative set.
func (l Layout) OrientationDir(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.ItemDir(target, itemID), o.String())
}

// NormalizedVideo is the orientation-normalized full-resolution MP4.
func (l Layout) NormalizedVideo(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), "video.mp4")
}

// LadderVideo is one height tier of the MP4 resolution ladder. The height is
// baked into the name, so the file is content-addressed and cacheable
// forever.
func (l Layout) LadderVideo(target, itemID string, o vo.Orientation, height int) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), fmt.Sprintf("video_%dp.mp4", height))
}

// Poster is the still frame captured per orientation.
func (l Layout) Poster(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), "poster.jpg")
}

// HLSDir holds the segmented streams for one orientation.
func (l Layout) HLSDir(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), "hls")
}

// HLSMaster is the orientation's master playlist.
func (l Layout) HLSMaster(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.HLSDir(target, itemID, o), "master.m3u8")
}

// NormalizedImage is the orientation-normalized full-size image.
func (l Layout) NormalizedImage(target, itemID string, o vo.Orientation) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), "image.jpg")
}

// ImageVariant is one width-scaled image derivative.
func (l Layout) ImageVariant(target, itemID string, o vo.Orientation, width int) string {
	return filepath.Join(l.OrientationDir(target, itemID, o), fmt.Sprintf("image_w%d.jpg", width))
}

// ItemInfo is the sidecar holding probe results and pipeline outcomes; the
// catalog builder reads it instead of re-probing.
func (l Layout) ItemInfo(target, itemID string) string {
	return filepath.Join(l.ItemDir(target, itemID), "item.json")
}

// LatestDir holds the convenience alias master refreshed after each
// landscape HLS run.
func (l Layout) LatestDir() string {
	return filepath.Join(l.Root, "latest")
}

// LatestMaster is the alias master playlist path.
func (l Layout) LatestMaster() string {
	return filepath.Join(l.LatestDir(), "master.m3u8")
}

// CatalogPath is the durable per-target manifest document.
func (l Layout) CatalogPath(target string) string {
	return filepath.Join(l.Root, fmt.Sprintf("catalog_%s.json", target))
}

// ExistsNonEmpty reports whether a derivative was already generated. An
// empty file counts as absent: a crashed encode may leave a zero-byte
// target behind.
func ExistsNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
