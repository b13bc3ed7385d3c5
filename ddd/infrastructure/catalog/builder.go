package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/vo"
	"signage-service/pkg/config"
	"signage-service/pkg/logger"
)

// AggregateTarget is the synthetic target whose catalog lists every item
// from every real target exactly once.
const AggregateTarget = "todas"

// Builder assembles per-target catalogs by scanning the media tree. It only
// advertises URLs whose backing file exists and is non-empty, so a manifest
// can never point a player at a missing derivative.
type Builder struct {
	layout layout.Layout
	media  config.MediaConfig
	image  config.ImageConfig
	ladder []int
}

func NewBuilder(lay layout.Layout, media config.MediaConfig, image config.ImageConfig, ladderHeights []int) *Builder {
	return &Builder{layout: lay, media: media, image: image, ladder: ladderHeights}
}

// BuildAll rebuilds every configured target plus the aggregate, all stamped
// with the same version.
func (b *Builder) BuildAll(version int64) (map[string]*entity.Catalog, error) {
	now := time.Now().UTC()
	out := make(map[string]*entity.Catalog, len(b.media.Targets)+1)
	var all []entity.CatalogItem

	for _, target := range b.media.Targets {
		if target == AggregateTarget {
			continue
		}
		items, err := b.buildTarget(target)
		if err != nil {
			return nil, err
		}
		out[target] = &entity.Catalog{Target: target, Version: version, Items: items, BuiltAt: now}
		all = append(all, items...)
	}

	out[AggregateTarget] = &entity.Catalog{
		Target:  AggregateTarget,
		Version: version,
		Items:   dedupeByID(all),
		BuiltAt: now,
	}
	return out, nil
}

// buildTarget reads every item sidecar under one target directory and
// rehydrates its URL sets from what is actually on disk.
func (b *Builder) buildTarget(target string) ([]entity.CatalogItem, error) {
	dir := b.layout.TargetDir(target)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan target %s: %w", target, err)
	}

	items := make([]entity.CatalogItem, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		item, err := b.loadItem(target, e.Name())
		if err != nil {
			logger.Warnf("skipping unreadable item target=%s id=%s error=%v", target, e.Name(), err)
			continue
		}
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return items, nil
}

func (b *Builder) loadItem(target, itemID string) (*entity.CatalogItem, error) {
	data, err := os.ReadFile(b.layout.ItemInfo(target, itemID))
	if err != nil {
		return nil, err
	}
	var item entity.CatalogItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode sidecar: %w", err)
	}

	item.Landscape = b.orientationURLs(target, itemID, vo.OrientationLandscape, item.Type)
	if p := b.orientationURLs(target, itemID, vo.OrientationPortrait, item.Type); !p.Empty() {
		item.Portrait = &p
	} else {
		item.Portrait = nil
	}
	return &item, nil
}

// orientationURLs collects the derivative URLs that are actually servable
// for one orientation.
func (b *Builder) orientationURLs(target, itemID string, o vo.Orientation, kind string) entity.OrientationURLs {
	var urls entity.OrientationURLs
	switch kind {
	case string(entity.MediaKindVideo):
		if p := b.layout.NormalizedVideo(target, itemID, o); layout.ExistsNonEmpty(p) {
			urls.Video = b.publicURL(p)
		}
		if p := b.layout.HLSMaster(target, itemID, o); layout.ExistsNonEmpty(p) {
			urls.HLS = b.publicURL(p)
		}
		if p := b.layout.Poster(target, itemID, o); layout.ExistsNonEmpty(p) {
			urls.Poster = b.publicURL(p)
		}
		for _, h := range b.ladder {
			if p := b.layout.LadderVideo(target, itemID, o, h); layout.ExistsNonEmpty(p) {
				urls.Variants = append(urls.Variants, b.publicURL(p))
			}
		}
	case string(entity.MediaKindImage):
		if p := b.layout.NormalizedImage(target, itemID, o); layout.ExistsNonEmpty(p) {
			urls.Image = b.publicURL(p)
		}
		for _, w := range b.image.Widths {
			if p := b.layout.ImageVariant(target, itemID, o, w); layout.ExistsNonEmpty(p) {
				urls.Variants = append(urls.Variants, b.publicURL(p))
			}
		}
	}
	return urls
}

// publicURL maps an absolute media path to its served URL.
func (b *Builder) publicURL(path string) string {
	rel, err := filepath.Rel(b.layout.Root, path)
	if err != nil {
		return ""
	}
	base := strings.TrimSuffix(b.media.PublicBase, "/")
	return base + "/media/" + filepath.ToSlash(rel)
}

// dedupeByID keeps the first occurrence of every item id; inputs are already
// newest-first per target, so the newest copy wins.
func dedupeByID(items []entity.CatalogItem) []entity.CatalogItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]entity.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}
