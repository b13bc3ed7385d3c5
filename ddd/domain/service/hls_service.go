package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/port"
	"signage-service/ddd/domain/vo"
	"signage-service/pkg/config"
	"signage-service/pkg/logger"
)

// hlsCodecs is advertised verbatim in every master playlist; all renditions
// are H.264 high profile with AAC audio.
const hlsCodecs = "avc1.640028,mp4a.40.2"

// HLSService produces multi-bitrate segmented streams and the master
// playlist from one multi-output encoder invocation.
type HLSService struct {
	layout    layout.Layout
	runner    port.Runner
	scheduler port.Scheduler
	encoder   config.EncoderConfig
	hls       config.HLSConfig
}

// NewHLSService wires the adaptive-stream generator.
func NewHLSService(lay layout.Layout, runner port.Runner, scheduler port.Scheduler, encoder config.EncoderConfig, hls config.HLSConfig) *HLSService {
	return &HLSService{layout: lay, runner: runner, scheduler: scheduler, encoder: encoder, hls: hls}
}

// GenerateAdaptive builds every configured rendition for one orientation.
// When a non-empty master already exists and force is false, encoding is
// skipped and only the playlist attributes are re-patched. Landscape runs
// also refresh the "latest" alias; portrait never touches it.
func (s *HLSService) GenerateAdaptive(ctx context.Context, target, itemID string, o vo.Orientation, renditions []vo.Rendition, hasAudio, force bool) (vo.StageResult, error) {
	stage := "hls_" + o.String()
	if !s.hls.Enabled {
		return vo.Skipped(stage, "disabled"), nil
	}
	if len(renditions) == 0 {
		return vo.Skipped(stage, "empty rendition set"), nil
	}

	input := s.layout.NormalizedVideo(target, itemID, o)
	outDir := s.layout.HLSDir(target, itemID, o)
	master := s.layout.HLSMaster(target, itemID, o)

	memoized := layout.ExistsNonEmpty(master) && !force
	if !memoized {
		if err := s.encodeRenditions(ctx, itemID, o, input, outDir, renditions, hasAudio); err != nil {
			return vo.Failed(stage, err), err
		}
	}

	if err := s.patchMaster(master, renditions); err != nil {
		return vo.Failed(stage, err), err
	}

	if o == vo.OrientationLandscape {
		if err := s.writeLatestAlias(target, itemID, renditions); err != nil {
			// The alias is a convenience; its failure never fails the run.
			logger.Warnf("latest alias refresh failed item=%s error=%v", itemID, err)
		}
	}

	if memoized {
		return vo.Memoized(stage, master), nil
	}
	return vo.Done(stage, master), nil
}

// encodeRenditions runs a single ffmpeg invocation producing all renditions
// at once; each output stream is bounded by its own bitrate.
func (s *HLSService) encodeRenditions(ctx context.Context, itemID string, o vo.Orientation, input, outDir string, renditions []vo.Rendition, hasAudio bool) error {
	for _, r := range renditions {
		if err := os.MkdirAll(filepath.Join(outDir, r.Name()), 0o755); err != nil {
			return fmt.Errorf("create rendition dir: %w", err)
		}
	}

	args := []string{"-y", "-i", input}
	for range renditions {
		args = append(args, "-map", "0:v:0")
		if hasAudio {
			args = append(args, "-map", "0:a:0")
		}
	}
	for i, r := range renditions {
		idx := strconv.Itoa(i)
		args = append(args,
			"-filter:v:"+idx, fmt.Sprintf("scale=-2:%d", r.Height),
			"-c:v:"+idx, "libx264",
			"-b:v:"+idx, strconv.Itoa(r.Bitrate),
			"-maxrate:v:"+idx, strconv.Itoa(r.Bitrate*3/2),
			"-bufsize:v:"+idx, strconv.Itoa(r.Bitrate*2),
		)
	}
	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	}

	seg := s.hls.SegmentDuration
	args = append(args,
		"-preset", s.encoder.Preset,
		"-sc_threshold", "0",
		"-g", "48",
		"-keyint_min", "48",
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", seg),
		"-f", "hls",
		"-hls_time", strconv.Itoa(seg),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", filepath.Join(outDir, "%v", "seg_%03d.ts"),
		"-master_pl_name", "master.m3u8",
		"-var_stream_map", varStreamMap(renditions, hasAudio),
		filepath.Join(outDir, "%v", "playlist.m3u8"),
	)

	return s.scheduler.Enqueue(ctx, fmt.Sprintf("hls_%s_%s", itemID, o), func(ctx context.Context) error {
		_, err := s.runner.Run(ctx, s.encoder.FFmpegPath, args...)
		return err
	})
}

// varStreamMap names each output stream after its tier so %v expands to the
// rendition directory.
func varStreamMap(renditions []vo.Rendition, hasAudio bool) string {
	entries := make([]string, 0, len(renditions))
	for i, r := range renditions {
		if hasAudio {
			entries = append(entries, fmt.Sprintf("v:%d,a:%d,name:%s", i, i, r.Name()))
		} else {
			entries = append(entries, fmt.Sprintf("v:%d,name:%s", i, r.Name()))
		}
	}
	return strings.Join(entries, " ")
}

// patchMaster rewrites the encoder-emitted master so its advertised
// attributes match the configured rendition list exactly, synthesizing
// entries when the tool emitted fewer stream-info lines than configured.
func (s *HLSService) patchMaster(masterPath string, renditions []vo.Rendition) error {
	var content string
	if data, err := os.ReadFile(masterPath); err == nil {
		content = string(data)
	}
	patched := PatchMasterPlaylist(content, renditions, s.hls.FPSOverride)
	return os.WriteFile(masterPath, []byte(patched), 0o644)
}

// PatchMasterPlaylist rebuilds the STREAM-INF section of a master playlist
// against the configured rendition list. Encoder-emitted URIs are kept in
// order; missing pairs are synthesized from the rendition name.
func PatchMasterPlaylist(content string, renditions []vo.Rendition, fps float64) string {
	uris := make([]string, 0, len(renditions))
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		uris = append(uris, line)
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for i, r := range renditions {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,CODECS=\"%s\"",
			r.Bandwidth, r.Width, r.Height, hlsCodecs))
		if fps > 0 {
			b.WriteString(fmt.Sprintf(",FRAME-RATE=%.3f", fps))
		}
		b.WriteString("\n")
		if i < len(uris) {
			b.WriteString(uris[i])
		} else {
			b.WriteString(r.Name() + "/playlist.m3u8")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// writeLatestAlias regenerates the convenience master pointing at the newest
// landscape renditions through relative URIs.
func (s *HLSService) writeLatestAlias(target, itemID string, renditions []vo.Rendition) error {
	if err := os.MkdirAll(s.layout.LatestDir(), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for _, r := range renditions {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,CODECS=\"%s\"",
			r.Bandwidth, r.Width, r.Height, hlsCodecs))
		if s.hls.FPSOverride > 0 {
			b.WriteString(fmt.Sprintf(",FRAME-RATE=%.3f", s.hls.FPSOverride))
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("../%s/%s/%s/hls/%s/playlist.m3u8\n",
			target, itemID, vo.OrientationLandscape, r.Name()))
	}
	return os.WriteFile(s.layout.LatestMaster(), []byte(b.String()), 0o644)
}
