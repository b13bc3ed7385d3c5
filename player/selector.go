// Package player is the client-side companion library: it picks what to
// play from a catalog, adapts rendition choice to observed conditions and
// tracks manifest versions pushed by the service.
package player

import (
	"sort"
	"strconv"
	"strings"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/vo"
)

// Throughput classes for the initial rendition pick, in bits per second.
const (
	throughputHD   = 6_000_000
	throughputSD   = 2_500_000
	defaultInitial = 720
)

// Selector narrows a catalog down to the playable set for one screen.
type Selector struct {
	Target      string
	Orientation vo.Orientation
}

// FilterItems keeps the items addressed to the selector's target. The
// aggregate catalog already carries every target, so its items pass as-is.
func (s Selector) FilterItems(items []entity.CatalogItem) []entity.CatalogItem {
	if s.Target == "" {
		return items
	}
	out := make([]entity.CatalogItem, 0, len(items))
	for _, item := range items {
		if item.Target == s.Target {
			out = append(out, item)
		}
	}
	return out
}

// URLsFor picks the orientation set for one item: the screen's own
// orientation when derivatives exist for it, landscape otherwise.
func (s Selector) URLsFor(item entity.CatalogItem) entity.OrientationURLs {
	if s.Orientation == vo.OrientationPortrait && item.Portrait != nil && !item.Portrait.Empty() {
		return *item.Portrait
	}
	return item.Landscape
}

// ConnectionType is the network class reported by the host shell, when its
// platform exposes one. Unknown is valid and defers to throughput.
type ConnectionType string

const (
	ConnectionUnknown ConnectionType = ""
	Connection2G      ConnectionType = "2g"
	Connection3G      ConnectionType = "3g"
	Connection4G      ConnectionType = "4g"
	ConnectionWiFi    ConnectionType = "wifi"
	ConnectionWired   ConnectionType = "wired"
)

// slow reports whether the class alone rules out anything but the bottom
// tier, before any bandwidth sample exists.
func (c ConnectionType) slow() bool {
	return c == Connection2G || c == Connection3G
}

// Link describes what the host knows about its network. Either field may be
// left at its zero value.
type Link struct {
	Connection    ConnectionType
	ThroughputBPS int64
}

// InitialHeight picks the starting rendition for a fresh playback session.
// A slow cellular class forces the bottom tier; otherwise zero throughput
// means the link is unmeasured and the middle-of-the-road default applies.
func InitialHeight(heights []int, link Link) int {
	if len(heights) == 0 {
		return 0
	}
	sorted := append([]int(nil), heights...)
	sort.Ints(sorted)

	if link.Connection.slow() {
		return sorted[0]
	}
	switch {
	case link.ThroughputBPS <= 0:
		return clampHeight(sorted, defaultInitial)
	case link.ThroughputBPS >= throughputHD:
		return sorted[len(sorted)-1]
	case link.ThroughputBPS >= throughputSD:
		return clampHeight(sorted, defaultInitial)
	default:
		return sorted[0]
	}
}

// clampHeight returns the tallest configured height not above want, or the
// lowest tier when everything is taller.
func clampHeight(sorted []int, want int) int {
	pick := sorted[0]
	for _, h := range sorted {
		if h <= want {
			pick = h
		}
	}
	return pick
}

// VariantForHeight finds the variant URL whose name carries the given
// height, falling back to the progressive video URL.
func VariantForHeight(urls entity.OrientationURLs, height int) string {
	marker := "_" + strconv.Itoa(height) + "p."
	for _, v := range urls.Variants {
		if strings.Contains(v, marker) {
			return v
		}
	}
	return urls.Video
}

// HeightsOf extracts the available ladder heights from an item's variant
// URLs, ascending.
func HeightsOf(urls entity.OrientationURLs) []int {
	heights := make([]int, 0, len(urls.Variants))
	for _, v := range urls.Variants {
		if h := parseHeight(v); h > 0 {
			heights = append(heights, h)
		}
	}
	sort.Ints(heights)
	return heights
}

func parseHeight(url string) int {
	i := strings.LastIndex(url, "_")
	if i < 0 {
		return 0
	}
	rest := url[i+1:]
	p := strings.Index(rest, "p.")
	if p <= 0 {
		return 0
	}
	h, err := strconv.Atoi(rest[:p])
	if err != nil {
		return 0
	}
	return h
}
