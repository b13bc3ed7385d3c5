package player

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/vo"
)

func testItem(id, target string, heights ...int) entity.CatalogItem {
	urls := entity.OrientationURLs{Video: fmt.Sprintf("http://cdn/%s/video.mp4", id)}
	for _, h := range heights {
		urls.Variants = append(urls.Variants, fmt.Sprintf("http://cdn/%s/video_%dp.mp4", id, h))
	}
	return entity.CatalogItem{ID: id, Target: target, Type: "video", Landscape: urls}
}

func TestSelectorFilterItems(t *testing.T) {
	items := []entity.CatalogItem{
		testItem("a", "lobby", 360),
		testItem("b", "checkout", 360),
		testItem("c", "lobby", 360),
	}

	got := Selector{Target: "lobby"}.FilterItems(items)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	assert.Len(t, Selector{}.FilterItems(items), 3, "empty target keeps everything")
}

func TestSelectorOrientationPick(t *testing.T) {
	item := testItem("a", "lobby", 360)
	portrait := entity.OrientationURLs{Video: "http://cdn/a/portrait/video.mp4"}
	item.Portrait = &portrait

	s := Selector{Orientation: vo.OrientationPortrait}
	assert.Equal(t, portrait, s.URLsFor(item))

	// A portrait screen degrades to landscape when no portrait set exists.
	item.Portrait = nil
	assert.Equal(t, item.Landscape, s.URLsFor(item))

	landscape := Selector{Orientation: vo.OrientationLandscape}
	item.Portrait = &portrait
	assert.Equal(t, item.Landscape, landscape.URLsFor(item))
}

func TestInitialHeight(t *testing.T) {
	heights := []int{360, 720, 1080}
	tests := []struct {
		name       string
		throughput int64
		want       int
	}{
		{"unmeasured link takes the default", 0, 720},
		{"fast link takes the top tier", 8_000_000, 1080},
		{"medium link takes the default", 3_000_000, 720},
		{"slow link takes the bottom tier", 1_000_000, 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InitialHeight(heights, Link{ThroughputBPS: tt.throughput}))
		})
	}

	assert.Equal(t, 480, InitialHeight([]int{480}, Link{}), "single tier is always picked")
	assert.Equal(t, 1080, InitialHeight([]int{1080}, Link{ThroughputBPS: 1000}), "lowest tier even when too tall")
}

func TestInitialHeightConnectionClass(t *testing.T) {
	heights := []int{360, 720, 1080}

	// A slow cellular class pins the bottom tier even without a sample,
	// and a measured-fast link does not override it.
	assert.Equal(t, 360, InitialHeight(heights, Link{Connection: Connection2G}))
	assert.Equal(t, 360, InitialHeight(heights, Link{Connection: Connection3G, ThroughputBPS: 8_000_000}))

	// Faster classes defer to throughput as usual.
	assert.Equal(t, 720, InitialHeight(heights, Link{Connection: ConnectionWiFi}))
	assert.Equal(t, 1080, InitialHeight(heights, Link{Connection: ConnectionWired, ThroughputBPS: 8_000_000}))
}

func TestVariantForHeight(t *testing.T) {
	urls := testItem("a", "lobby", 360, 720).Landscape
	assert.Equal(t, "http://cdn/a/video_720p.mp4", VariantForHeight(urls, 720))
	assert.Equal(t, urls.Video, VariantForHeight(urls, 1080), "missing tier falls back to progressive")
}

func TestHeightsOf(t *testing.T) {
	urls := testItem("a", "lobby", 1080, 360, 720).Landscape
	assert.Equal(t, []int{360, 720, 1080}, HeightsOf(urls))
	assert.Empty(t, HeightsOf(entity.OrientationURLs{Video: "http://cdn/a/video.mp4"}))
}

func TestStallTrackerThreshold(t *testing.T) {
	tr := NewStallTracker(time.Minute)
	assert.False(t, tr.Record(), "a single stall is tolerated")
	assert.True(t, tr.Record(), "the second stall in the window trips the signal")
	assert.False(t, tr.Record(), "tripping clears the window")
}

func TestStallTrackerWindowExpiry(t *testing.T) {
	now := time.Now()
	tr := NewStallTracker(10 * time.Second)
	tr.now = func() time.Time { return now }

	assert.False(t, tr.Record())
	now = now.Add(11 * time.Second)
	assert.False(t, tr.Record(), "the first stall aged out of the window")
	assert.Equal(t, 1, tr.Count())
}

func newLoadedController(throughput int64) *Controller {
	c := NewController(Selector{Target: "lobby"}, time.Minute)
	cat := &entity.Catalog{Items: []entity.CatalogItem{
		testItem("first", "lobby", 360, 720, 1080),
		testItem("second", "lobby", 360, 720, 1080),
	}}
	c.Load(cat, Link{ThroughputBPS: throughput})
	return c
}

func TestControllerDowngradePreservesPosition(t *testing.T) {
	c := newLoadedController(10_000_000)

	state, ok := c.Current()
	require.True(t, ok)
	require.Equal(t, 1080, state.Height)

	c.OnProgress(42.5)
	c.OnStall()
	state, _ = c.OnStall()

	assert.Equal(t, "first", state.ItemID, "downgrade stays on the same item")
	assert.Equal(t, 720, state.Height)
	assert.Equal(t, 42.5, state.Position, "the playhead survives the switch")
	assert.Contains(t, state.URL, "video_720p.mp4")
}

func TestControllerLowestTierAdvances(t *testing.T) {
	c := newLoadedController(1_000_000)

	state, _ := c.Current()
	require.Equal(t, 360, state.Height)

	c.OnProgress(12)
	c.OnStall()
	state, ok := c.OnStall()
	require.True(t, ok)

	assert.Equal(t, "second", state.ItemID, "bottom tier gives up on the item")
	assert.Equal(t, 360, state.Height, "the next item starts at the lowest tier")
	assert.Zero(t, state.Position)
}

func TestControllerEndedWraps(t *testing.T) {
	c := newLoadedController(0)

	state, _ := c.OnEnded()
	assert.Equal(t, "second", state.ItemID)
	state, _ = c.OnEnded()
	assert.Equal(t, "first", state.ItemID)
}

func TestControllerReconcileKeepsCurrentItem(t *testing.T) {
	c := newLoadedController(0)
	c.OnEnded() // move to "second"
	c.OnProgress(7)

	// The new catalog reorders and prepends items; "second" survives.
	c.Reconcile(&entity.Catalog{Items: []entity.CatalogItem{
		testItem("brandnew", "lobby", 360),
		testItem("second", "lobby", 360, 720, 1080),
	}})

	state, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", state.ItemID)
	assert.Equal(t, 7.0, state.Position, "reconcile by identity keeps the playhead")
}

func TestControllerReconcileVanishedItemClamps(t *testing.T) {
	c := newLoadedController(0)
	c.OnEnded() // index 1
	c.OnProgress(7)

	c.Reconcile(&entity.Catalog{Items: []entity.CatalogItem{
		testItem("other", "lobby", 360),
	}})

	state, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "other", state.ItemID)
	assert.Zero(t, state.Position, "a vanished item cannot keep its playhead")
}

func TestControllerReconcileEmptyCatalog(t *testing.T) {
	c := newLoadedController(0)
	c.Reconcile(&entity.Catalog{})
	_, ok := c.Current()
	assert.False(t, ok)
}
