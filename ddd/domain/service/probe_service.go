package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"signage-service/ddd/domain/port"
	"signage-service/ddd/domain/vo"
)

// ProbeService extracts rotation/dimensions/duration/audio-presence from a
// source file via ffprobe.
type ProbeService struct {
	runner      port.Runner
	ffprobePath string
}

// NewProbeService creates the metadata prober.
func NewProbeService(runner port.Runner, ffprobePath string) *ProbeService {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &ProbeService{runner: runner, ffprobePath: ffprobePath}
}

type ffprobeSideData struct {
	SideDataType string  `json:"side_data_type,omitempty"`
	Rotation     float64 `json:"rotation,omitempty"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Tags      struct {
		Rotate string `json:"rotate,omitempty"`
	} `json:"tags,omitempty"`
	SideDataList []ffprobeSideData `json:"side_data_list,omitempty"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe and parses the JSON output. A malformed source or a
// missing binary surfaces as an error; the caller decides whether that means
// passthrough or rejection.
func (p *ProbeService) Probe(ctx context.Context, path string) (vo.MediaMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	out, err := p.runner.Run(ctx, p.ffprobePath, args...)
	if err != nil {
		return vo.MediaMetadata{}, fmt.Errorf("ffprobe: %w", err)
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return vo.MediaMetadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var meta vo.MediaMetadata

	if probed.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
			meta.DurationSeconds = d
		}
	}

	sawVideo := false
	for _, stream := range probed.Streams {
		switch stream.CodecType {
		case "video":
			if sawVideo {
				continue
			}
			sawVideo = true
			meta.Width = stream.Width
			meta.Height = stream.Height
			meta.Rotation = rotationFromStream(stream)
			if meta.DurationSeconds == 0 && stream.Duration != "" {
				if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					meta.DurationSeconds = d
				}
			}
		case "audio":
			meta.HasAudio = true
		}
	}

	if !sawVideo || meta.Width == 0 || meta.Height == 0 {
		return vo.MediaMetadata{}, fmt.Errorf("no usable video stream in %s", path)
	}

	return meta, nil
}

// rotationFromStream normalizes the rotation tag or display-matrix entry to
// one of 0/90/180/270. The display matrix reports counter-clockwise degrees,
// often negative.
func rotationFromStream(stream ffprobeStream) int {
	if tag := strings.TrimSpace(stream.Tags.Rotate); tag != "" {
		if deg, err := strconv.Atoi(tag); err == nil {
			return normalizeDegrees(deg)
		}
	}
	for _, sd := range stream.SideDataList {
		if sd.Rotation != 0 {
			return normalizeDegrees(int(sd.Rotation))
		}
	}
	return 0
}

func normalizeDegrees(deg int) int {
	deg = ((deg % 360) + 360) % 360
	switch deg {
	case 90, 180, 270:
		return deg
	default:
		return 0
	}
}
