package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/port"
	"signage-service/ddd/domain/vo"
	"signage-service/pkg/config"
	"signage-service/pkg/errno"
	"signage-service/pkg/logger"
)

// VideoResult describes what the derivative pipeline produced for one video
// source. Optional-stage failures are recorded, not raised.
type VideoResult struct {
	Normalized   bool
	Meta         vo.MediaMetadata
	Orientations []vo.Orientation
	Ladder       map[vo.Orientation][]vo.Rendition
	Stages       []vo.StageResult
}

// VideoService normalizes orientation and produces the MP4 resolution ladder
// and posters. All encoder invocations go through the scheduler.
type VideoService struct {
	layout    layout.Layout
	prober    port.Prober
	runner    port.Runner
	scheduler port.Scheduler
	cfg       config.EncoderConfig
}

// NewVideoService wires the video derivative generator.
func NewVideoService(lay layout.Layout, prober port.Prober, runner port.Runner, scheduler port.Scheduler, cfg config.EncoderConfig) *VideoService {
	return &VideoService{layout: lay, prober: prober, runner: runner, scheduler: scheduler, cfg: cfg}
}

// GenerateDerivatives runs probe → normalize → portrait → re-probe → posters
// → MP4 ladder. A missing prober/encoder degrades to original-file
// passthrough; a malformed source rejects this upload only.
func (s *VideoService) GenerateDerivatives(ctx context.Context, target, itemID, sourcePath string) (*VideoResult, error) {
	res := &VideoResult{
		Ladder: make(map[vo.Orientation][]vo.Rendition),
	}

	meta, err := s.prober.Probe(ctx, sourcePath)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// Encoder tooling absent on this host: serve the original
			// unmodified rather than failing the publish.
			logger.Warnf("probe tooling unavailable, passthrough item=%s error=%v", itemID, err)
			return s.passthrough(target, itemID, sourcePath, res)
		}
		logger.Errorf("probe failed item=%s source=%s error=%v", itemID, sourcePath, err)
		return nil, errno.ErrMalformedSource
	}

	// Stage: orientation normalization. Always re-encode, even at rotation
	// zero, so the rotation tag is stripped and the container is uniform.
	normalized := s.layout.NormalizedVideo(target, itemID, vo.OrientationLandscape)
	if layout.ExistsNonEmpty(normalized) {
		res.Stages = append(res.Stages, vo.Memoized("normalize", normalized))
	} else {
		if err := s.encodeNormalized(ctx, itemID, sourcePath, normalized, meta); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				logger.Warnf("encoder unavailable, passthrough item=%s error=%v", itemID, err)
				return s.passthrough(target, itemID, sourcePath, res)
			}
			return nil, errno.ErrTranscodeFailed
		}
		res.Stages = append(res.Stages, vo.Done("normalize", normalized))
	}
	res.Normalized = true
	res.Orientations = append(res.Orientations, vo.OrientationLandscape)

	// Stage: portrait derivation from the normalized landscape output.
	if s.cfg.PortraitEnabled {
		portrait := s.layout.NormalizedVideo(target, itemID, vo.OrientationPortrait)
		switch {
		case layout.ExistsNonEmpty(portrait):
			res.Stages = append(res.Stages, vo.Memoized("portrait", portrait))
			res.Orientations = append(res.Orientations, vo.OrientationPortrait)
		default:
			if err := s.encodeTransposed(ctx, itemID, normalized, portrait); err != nil {
				res.Stages = append(res.Stages, vo.Failed("portrait", err))
			} else {
				res.Stages = append(res.Stages, vo.Done("portrait", portrait))
				res.Orientations = append(res.Orientations, vo.OrientationPortrait)
			}
		}
	} else {
		res.Stages = append(res.Stages, vo.Skipped("portrait", "disabled"))
	}

	// Re-probe for authoritative post-transcode dimensions.
	if reprobed, err := s.prober.Probe(ctx, normalized); err == nil {
		meta = reprobed
	} else {
		logger.Warnf("re-probe failed, keeping source metadata item=%s error=%v", itemID, err)
	}
	res.Meta = meta

	// Stage: posters, one per orientation, never fatal.
	for _, o := range res.Orientations {
		input := s.layout.NormalizedVideo(target, itemID, o)
		poster := s.layout.Poster(target, itemID, o)
		if layout.ExistsNonEmpty(poster) {
			res.Stages = append(res.Stages, vo.Memoized("poster_"+o.String(), poster))
			continue
		}
		if err := s.capturePoster(ctx, itemID, input, poster); err != nil {
			logger.Warnf("poster capture failed orientation=%s item=%s error=%v", o, itemID, err)
			res.Stages = append(res.Stages, vo.Failed("poster_"+o.String(), err))
			continue
		}
		res.Stages = append(res.Stages, vo.Done("poster_"+o.String(), poster))
	}

	// Stage: MP4 resolution ladder per orientation.
	ladder := vo.BuildLadder(s.cfg.Heights, s.cfg.BitrateOverrides)
	for _, o := range res.Orientations {
		// The probed dimensions describe the landscape output; when the
		// derivative's long axis disagrees with the probed shape, the cap
		// lives on the other dimension.
		sourceHeight := meta.Height
		if (o == vo.OrientationPortrait) != meta.IsPortrait() {
			sourceHeight = meta.Width
		}
		tiers := vo.LadderUpTo(ladder, sourceHeight)
		res.Ladder[o] = tiers

		input := s.layout.NormalizedVideo(target, itemID, o)
		for _, tier := range tiers {
			out := s.layout.LadderVideo(target, itemID, o, tier.Height)
			stage := fmt.Sprintf("mp4_%s_%dp", o, tier.Height)
			if layout.ExistsNonEmpty(out) {
				res.Stages = append(res.Stages, vo.Memoized(stage, out))
				continue
			}
			if err := s.encodeTier(ctx, itemID, input, out, tier); err != nil {
				res.Stages = append(res.Stages, vo.Failed(stage, err))
				continue
			}
			res.Stages = append(res.Stages, vo.Done(stage, out))
		}
	}

	return res, nil
}

// passthrough copies the original into the landscape slot so the item is
// still servable, tagged as not normalized.
func (s *VideoService) passthrough(target, itemID, sourcePath string, res *VideoResult) (*VideoResult, error) {
	dst := s.layout.NormalizedVideo(target, itemID, vo.OrientationLandscape)
	if !layout.ExistsNonEmpty(dst) {
		if err := copyFile(sourcePath, dst); err != nil {
			return nil, fmt.Errorf("passthrough copy: %w", err)
		}
	}
	res.Normalized = false
	res.Orientations = []vo.Orientation{vo.OrientationLandscape}
	res.Stages = append(res.Stages, vo.Skipped("normalize", "tooling unavailable, serving original"))
	return res, nil
}

func (s *VideoService) encodeNormalized(ctx context.Context, itemID, input, output string, meta vo.MediaMetadata) error {
	args := []string{"-y", "-i", input}
	if meta.NeedsRotation() {
		args = append(args, "-vf", transposeFilter(meta.Rotation))
	}
	args = append(args,
		"-metadata:s:v:0", "rotate=0",
		"-c:v", "libx264",
		"-preset", s.cfg.Preset,
		"-crf", strconv.Itoa(s.cfg.CRF),
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		output,
	)
	return s.runFFmpeg(ctx, "normalize_"+itemID, output, args)
}

func (s *VideoService) encodeTransposed(ctx context.Context, itemID, input, output string) error {
	args := []string{
		"-y", "-i", input,
		"-vf", "transpose=1",
		"-c:v", "libx264",
		"-preset", s.cfg.Preset,
		"-crf", strconv.Itoa(s.cfg.CRF),
		"-c:a", "copy",
		"-movflags", "+faststart",
		output,
	}
	return s.runFFmpeg(ctx, "portrait_"+itemID, output, args)
}

func (s *VideoService) capturePoster(ctx context.Context, itemID, input, output string) error {
	args := []string{
		"-y",
		"-ss", "1",
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		output,
	}
	return s.runFFmpeg(ctx, "poster_"+itemID, output, args)
}

func (s *VideoService) encodeTier(ctx context.Context, itemID, input, output string, tier vo.Rendition) error {
	args := []string{
		"-y", "-i", input,
		"-vf", fmt.Sprintf("scale=-2:%d", tier.Height),
		"-c:v", "libx264",
		"-preset", s.cfg.Preset,
		"-b:v", strconv.Itoa(tier.Bitrate),
		"-maxrate", strconv.Itoa(tier.Bitrate*3/2),
		"-bufsize", strconv.Itoa(tier.Bitrate*2),
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		output,
	}
	return s.runFFmpeg(ctx, fmt.Sprintf("mp4_%s_%d", itemID, tier.Height), output, args)
}

// runFFmpeg enqueues one encoder invocation and removes a partial output on
// failure so memoization never trusts a truncated file.
func (s *VideoService) runFFmpeg(ctx context.Context, name, output string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	err := s.scheduler.Enqueue(ctx, name, func(ctx context.Context) error {
		_, runErr := s.runner.Run(ctx, s.cfg.FFmpegPath, args...)
		return runErr
	})
	if err != nil {
		_ = os.Remove(output)
		return err
	}
	return nil
}

// transposeFilter maps a rotation tag to the ffmpeg filter that bakes the
// rotation into the pixels.
func transposeFilter(rotation int) string {
	switch rotation {
	case 90:
		return "transpose=1"
	case 180:
		return "hflip,vflip"
	case 270:
		return "transpose=2"
	default:
		return ""
	}
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
