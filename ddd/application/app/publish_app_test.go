package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-service/ddd/domain/entity"
	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/port"
	"signage-service/ddd/domain/service"
	"signage-service/ddd/infrastructure/catalog"
	"signage-service/ddd/infrastructure/database/dao"
	"signage-service/ddd/infrastructure/notify"
	"signage-service/ddd/infrastructure/queue"
	"signage-service/pkg/config"
	"signage-service/pkg/errno"
)

const probeJSON = `{
	"streams": [{"codec_type": "video", "width": 1280, "height": 720}, {"codec_type": "audio"}],
	"format": {"duration": "8.0"}
}`

// toolRunner answers ffprobe with canned JSON and fakes ffmpeg by writing
// the output file.
func toolRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if strings.Contains(binary, "ffprobe") {
		return []byte(probeJSON), nil
	}
	out := args[len(args)-1]
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	return nil, os.WriteFile(out, []byte("encoded"), 0o644)
}

func newTestApp(t *testing.T) (*PublishApp, layout.Layout, *notify.Hub) {
	t.Helper()
	lay := layout.Layout{Root: t.TempDir()}
	media := config.MediaConfig{Targets: []string{"lobby", "checkout"}}
	encoder := config.EncoderConfig{
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Heights:         []int{360, 720},
		PortraitEnabled: true,
		Preset:          "veryfast",
	}
	imageCfg := config.ImageConfig{Widths: []int{640}, Quality: 85, PortraitEnabled: true}

	q := queue.NewTranscodeQueue(1, 16)
	t.Cleanup(q.Close)
	runner := port.RunnerFunc(toolRunner)

	store := catalog.NewStore(lay)
	hub := notify.NewHub(0)
	a := NewPublishApp(
		lay, media, encoder,
		service.NewVideoService(lay, service.NewProbeService(runner, "ffprobe"), runner, q, encoder),
		service.NewImageService(lay, imageCfg),
		service.NewHLSService(lay, runner, q, encoder, config.HLSConfig{Enabled: true, SegmentDuration: 4}),
		catalog.NewBuilder(lay, media, imageCfg, encoder.Heights),
		store, catalog.NewVersionSource(lay), hub,
		notify.NewKafkaMirror(nil, ""),
		catalog.NewRedisMirror(nil, ""),
		nil,
		dao.NewPublishJobDAO(nil),
	)
	return a, lay, hub
}

func writeUpload(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessVideoPublish(t *testing.T) {
	a, lay, hub := newTestApp(t)
	src := writeUpload(t, t.TempDir(), "clip.mp4", "raw video")
	info, err := os.Stat(src)
	require.NoError(t, err)

	notices, cancel := hub.Subscribe()
	defer cancel()

	upload := entity.SourceUpload{
		ID:     entity.ItemID(src, info.ModTime()),
		Path:   src,
		MIME:   "video/mp4",
		Kind:   entity.MediaKindVideo,
		Target: "lobby",
	}
	version, err := a.process(context.Background(), upload, false)
	require.NoError(t, err)
	require.Greater(t, version, int64(0))

	// The source is retained for later re-derivation.
	assert.True(t, layout.ExistsNonEmpty(lay.SourcePath("lobby", upload.ID, ".mp4")))

	// The sidecar records probed metadata.
	var item entity.CatalogItem
	data, err := os.ReadFile(lay.ItemInfo("lobby", upload.ID))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &item))
	assert.Equal(t, 1280, item.Width)
	assert.Equal(t, 720, item.Height)
	assert.True(t, item.Normalized)
	assert.NotEmpty(t, item.ETag)

	// All catalogs carry the new version and the published item.
	for _, target := range []string{"lobby", catalog.AggregateTarget} {
		raw, _, ok := a.store.Get(target)
		require.True(t, ok, target)
		var cat entity.Catalog
		require.NoError(t, json.Unmarshal(raw, &cat))
		assert.Equal(t, version, cat.Version)
		require.Len(t, cat.Items, 1)
		assert.Equal(t, upload.ID, cat.Items[0].ID)
		assert.NotEmpty(t, cat.Items[0].Landscape.Video)
		assert.NotEmpty(t, cat.Items[0].Landscape.HLS)
	}

	// Subscribers hear about the publish.
	select {
	case n := <-notices:
		assert.Equal(t, version, n.Version)
	case <-time.After(time.Second):
		t.Fatal("no broadcast after publish")
	}
}

func TestProcessBumpsVersionEachPublish(t *testing.T) {
	a, _, _ := newTestApp(t)
	dir := t.TempDir()

	src1 := writeUpload(t, dir, "one.mp4", "a")
	src2 := writeUpload(t, dir, "two.mp4", "b")
	info1, _ := os.Stat(src1)
	info2, _ := os.Stat(src2)

	v1, err := a.process(context.Background(), entity.SourceUpload{
		ID: entity.ItemID(src1, info1.ModTime()), Path: src1, Kind: entity.MediaKindVideo, Target: "lobby",
	}, false)
	require.NoError(t, err)
	v2, err := a.process(context.Background(), entity.SourceUpload{
		ID: entity.ItemID(src2, info2.ModTime()), Path: src2, Kind: entity.MediaKindVideo, Target: "checkout",
	}, false)
	require.NoError(t, err)

	assert.Greater(t, v2, v1)
	assert.Equal(t, v2, a.Version())
}

func TestRecentJobsWithoutLedger(t *testing.T) {
	a, _, _ := newTestApp(t)
	jobs, err := a.RecentJobs(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestPublishValidation(t *testing.T) {
	a, _, _ := newTestApp(t)
	src := writeUpload(t, t.TempDir(), "clip.mp4", "x")

	tests := []struct {
		name string
		req  PublishRequest
		want error
	}{
		{"missing path", PublishRequest{Mime: "video/mp4", Target: "lobby"}, errno.ErrSourcePathRequired},
		{"missing target", PublishRequest{Path: src, Mime: "video/mp4"}, errno.ErrTargetRequired},
		{"unknown target", PublishRequest{Path: src, Mime: "video/mp4", Target: "garage"}, errno.ErrUnknownTarget},
		{"aggregate is read only", PublishRequest{Path: src, Mime: "video/mp4", Target: "todas"}, errno.ErrUnknownTarget},
		{"unsupported mime", PublishRequest{Path: src, Mime: "application/pdf", Target: "lobby"}, errno.ErrUnsupportedMime},
		{"unreadable source", PublishRequest{Path: src + ".nope", Mime: "video/mp4", Target: "lobby"}, errno.ErrSourceNotReadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Publish(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestItemIDDeterministic(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	a := entity.ItemID("/uploads/clip.mp4", mtime)
	b := entity.ItemID("/elsewhere/clip.mp4", mtime)
	assert.Equal(t, a, b, "identity depends on base name and mtime only")
	assert.Len(t, a, 12)
	assert.NotEqual(t, a, entity.ItemID("clip.mp4", mtime.Add(time.Second)))
}
