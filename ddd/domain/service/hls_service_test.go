package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/vo"
	"signage-service/pkg/config"
)

func hlsTestService(t *testing.T) (*HLSService, layout.Layout, *recordingRunner) {
	t.Helper()
	lay := layout.Layout{Root: t.TempDir()}
	runner := &recordingRunner{}
	svc := NewHLSService(lay, runner, inlineScheduler{}, encoderConfig(), config.HLSConfig{
		Enabled:         true,
		SegmentDuration: 4,
	})
	return svc, lay, runner
}

func TestPatchMasterPlaylistSynthesizesMissingPairs(t *testing.T) {
	ladder := vo.BuildLadder([]int{360, 720, 1080}, nil)

	// The encoder only emitted two of the three configured tiers.
	emitted := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1,RESOLUTION=2x2\n" +
		"360p/playlist.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1,RESOLUTION=2x2\n" +
		"720p/playlist.m3u8\n"

	patched := PatchMasterPlaylist(emitted, ladder, 0)
	lines := strings.Split(strings.TrimRight(patched, "\n"), "\n")

	var streamInf, uris []string
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			streamInf = append(streamInf, line)
		case !strings.HasPrefix(line, "#"):
			uris = append(uris, line)
		}
	}
	require.Len(t, streamInf, 3, "patched master advertises every configured tier")
	require.Len(t, uris, 3)

	// The emitted URIs survive; the missing third is synthesized.
	assert.Equal(t, "360p/playlist.m3u8", uris[0])
	assert.Equal(t, "720p/playlist.m3u8", uris[1])
	assert.Equal(t, "1080p/playlist.m3u8", uris[2])

	// Attributes come from the configured ladder, not the emitted file.
	assert.Contains(t, streamInf[0], "BANDWIDTH=828000")
	assert.Contains(t, streamInf[0], "RESOLUTION=640x360")
	assert.Contains(t, streamInf[2], "RESOLUTION=1920x1080")
	for _, line := range streamInf {
		assert.Contains(t, line, `CODECS="avc1.640028,mp4a.40.2"`)
		assert.NotContains(t, line, "FRAME-RATE")
	}
}

func TestPatchMasterPlaylistFrameRate(t *testing.T) {
	ladder := vo.BuildLadder([]int{360}, nil)
	patched := PatchMasterPlaylist("", ladder, 25)
	assert.Contains(t, patched, "FRAME-RATE=25.000")
}

func TestVarStreamMap(t *testing.T) {
	ladder := vo.BuildLadder([]int{360, 720}, nil)
	assert.Equal(t, "v:0,a:0,name:360p v:1,a:1,name:720p", varStreamMap(ladder, true))
	assert.Equal(t, "v:0,name:360p v:1,name:720p", varStreamMap(ladder, false))
}

func TestGenerateAdaptiveWritesPatchedMaster(t *testing.T) {
	svc, lay, runner := hlsTestService(t)
	ladder := vo.BuildLadder([]int{360, 720}, nil)

	stage, err := svc.GenerateAdaptive(context.Background(), "lobby", "item1", vo.OrientationLandscape, ladder, true, false)
	require.NoError(t, err)
	assert.Equal(t, vo.StageDone, stage.Status)
	require.Len(t, runner.calls, 1, "all renditions come from a single invocation")

	master, err := os.ReadFile(lay.HLSMaster("lobby", "item1", vo.OrientationLandscape))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(master), "#EXT-X-STREAM-INF:"))

	// Landscape runs refresh the latest alias with relative URIs.
	alias, err := os.ReadFile(lay.LatestMaster())
	require.NoError(t, err)
	assert.Contains(t, string(alias), "../lobby/item1/landscape/hls/360p/playlist.m3u8")
}

func TestGenerateAdaptivePortraitSkipsLatestAlias(t *testing.T) {
	svc, lay, _ := hlsTestService(t)
	ladder := vo.BuildLadder([]int{360}, nil)

	_, err := svc.GenerateAdaptive(context.Background(), "lobby", "item1", vo.OrientationPortrait, ladder, false, false)
	require.NoError(t, err)

	_, statErr := os.Stat(lay.LatestMaster())
	assert.True(t, os.IsNotExist(statErr), "portrait must never touch the latest alias")
}

func TestGenerateAdaptiveMemoizes(t *testing.T) {
	svc, lay, runner := hlsTestService(t)
	ladder := vo.BuildLadder([]int{360}, nil)

	master := lay.HLSMaster("lobby", "item1", vo.OrientationLandscape)
	require.NoError(t, os.MkdirAll(filepath.Dir(master), 0o755))
	require.NoError(t, os.WriteFile(master, []byte("#EXTM3U\n360p/playlist.m3u8\n"), 0o644))

	stage, err := svc.GenerateAdaptive(context.Background(), "lobby", "item1", vo.OrientationLandscape, ladder, true, false)
	require.NoError(t, err)
	assert.Equal(t, vo.StageSkipped, stage.Status)
	assert.Empty(t, runner.calls, "existing master skips the encode")

	// The master still gets re-patched against the current ladder.
	data, err := os.ReadFile(master)
	require.NoError(t, err)
	assert.Contains(t, string(data), "RESOLUTION=640x360")
}

func TestGenerateAdaptiveDisabled(t *testing.T) {
	lay := layout.Layout{Root: t.TempDir()}
	svc := NewHLSService(lay, &recordingRunner{}, inlineScheduler{}, encoderConfig(), config.HLSConfig{Enabled: false})

	stage, err := svc.GenerateAdaptive(context.Background(), "lobby", "item1", vo.OrientationLandscape, vo.BuildLadder([]int{360}, nil), true, false)
	require.NoError(t, err)
	assert.Equal(t, vo.StageSkipped, stage.Status)
}
