package player

import (
	"sort"
	"time"

	"signage-service/ddd/domain/entity"
)

// PlaybackState is what the controller tells the host player to render.
type PlaybackState struct {
	ItemID   string
	URL      string
	Height   int
	Position float64 // seconds into the current item
}

// Controller drives the playlist: rendition downgrades on repeated stalls,
// item advancement and catalog reconciliation.
type Controller struct {
	selector Selector
	tracker  *StallTracker

	items    []entity.CatalogItem
	index    int
	height   int
	position float64
}

func NewController(selector Selector, stallWindow time.Duration) *Controller {
	return &Controller{selector: selector, tracker: NewStallTracker(stallWindow)}
}

// Load installs a fresh catalog and starts at the first item with the
// connection-appropriate rendition.
func (c *Controller) Load(cat *entity.Catalog, link Link) {
	c.items = c.selector.FilterItems(cat.Items)
	c.index = 0
	c.position = 0
	c.tracker.Reset()

	if len(c.items) > 0 {
		heights := HeightsOf(c.selector.URLsFor(c.items[0]))
		c.height = InitialHeight(heights, link)
	}
}

// Current returns what should be on screen right now.
func (c *Controller) Current() (PlaybackState, bool) {
	if len(c.items) == 0 {
		return PlaybackState{}, false
	}
	item := c.items[c.index]
	urls := c.selector.URLsFor(item)
	return PlaybackState{
		ItemID:   item.ID,
		URL:      VariantForHeight(urls, c.height),
		Height:   c.height,
		Position: c.position,
	}, true
}

// OnProgress records the playhead so a rendition switch can resume in place.
func (c *Controller) OnProgress(position float64) {
	c.position = position
}

// OnStall is called whenever playback buffers. Repeated stalls inside the
// window step the rendition down one tier, keeping the playhead. At the
// lowest tier the controller gives up on the item and advances, starting
// the next one at the lowest tier.
func (c *Controller) OnStall() (PlaybackState, bool) {
	if !c.tracker.Record() {
		return c.mustCurrent()
	}

	heights := c.currentHeights()
	if lower, ok := stepDown(heights, c.height); ok {
		c.height = lower
		return c.mustCurrent()
	}

	// Already at the bottom; this item is unplayable on this link.
	c.advance()
	if len(heights) > 0 {
		c.height = heights[0]
	}
	return c.mustCurrent()
}

// OnEnded advances to the next item, wrapping at the end of the playlist.
func (c *Controller) OnEnded() (PlaybackState, bool) {
	c.advance()
	return c.mustCurrent()
}

// Reconcile applies a new catalog without restarting playback: the current
// item is re-found by identity and the playhead survives; a vanished item
// clamps to the nearest valid index and resets the position.
func (c *Controller) Reconcile(cat *entity.Catalog) {
	var currentID string
	if len(c.items) > 0 {
		currentID = c.items[c.index].ID
	}

	c.items = c.selector.FilterItems(cat.Items)
	if len(c.items) == 0 {
		c.index = 0
		c.position = 0
		return
	}

	for i, item := range c.items {
		if item.ID == currentID {
			c.index = i
			return
		}
	}
	if c.index >= len(c.items) {
		c.index = len(c.items) - 1
	}
	c.position = 0
	c.tracker.Reset()
}

func (c *Controller) advance() {
	if len(c.items) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.items)
	c.position = 0
	c.tracker.Reset()
}

func (c *Controller) currentHeights() []int {
	if len(c.items) == 0 {
		return nil
	}
	return HeightsOf(c.selector.URLsFor(c.items[c.index]))
}

func (c *Controller) mustCurrent() (PlaybackState, bool) {
	return c.Current()
}

// stepDown returns the next tier below current, ok=false at the bottom.
func stepDown(heights []int, current int) (int, bool) {
	sorted := append([]int(nil), heights...)
	sort.Ints(sorted)
	lower := 0
	for _, h := range sorted {
		if h < current && h > lower {
			lower = h
		}
	}
	if lower == 0 {
		return 0, false
	}
	return lower, true
}
