package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-service/ddd/domain/port"
)

func fixedRunner(output string, err error) port.RunnerFunc {
	return func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte(output), err
	}
}

func TestProbeParsesMetadata(t *testing.T) {
	out := `{
		"streams": [
			{"codec_type": "video", "width": 1920, "height": 1080, "duration": "12.5"},
			{"codec_type": "audio"}
		],
		"format": {"duration": "12.480000"}
	}`
	p := NewProbeService(fixedRunner(out, nil), "ffprobe")

	meta, err := p.Probe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, 1920, meta.Width)
	assert.Equal(t, 1080, meta.Height)
	assert.Equal(t, 0, meta.Rotation)
	assert.True(t, meta.HasAudio)
	assert.InDelta(t, 12.48, meta.DurationSeconds, 0.001, "format duration wins over stream duration")
}

func TestProbeRotation(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int
	}{
		{
			name: "rotate tag",
			json: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"tags":{"rotate":"90"}}]}`,
			want: 90,
		},
		{
			name: "negative display matrix",
			json: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"side_data_list":[{"side_data_type":"Display Matrix","rotation":-90}]}]}`,
			want: 270,
		},
		{
			name: "full turn is no rotation",
			json: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"tags":{"rotate":"360"}}]}`,
			want: 0,
		},
		{
			name: "odd angle ignored",
			json: `{"streams":[{"codec_type":"video","width":1920,"height":1080,"tags":{"rotate":"45"}}]}`,
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProbeService(fixedRunner(tt.json, nil), "ffprobe")
			meta, err := p.Probe(context.Background(), "clip.mp4")
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.Rotation)
		})
	}
}

func TestProbeRejectsNonVideo(t *testing.T) {
	p := NewProbeService(fixedRunner(`{"streams":[{"codec_type":"audio"}]}`, nil), "ffprobe")
	_, err := p.Probe(context.Background(), "song.mp3")
	assert.Error(t, err)
}

func TestProbeWrapsRunnerError(t *testing.T) {
	boom := errors.New("exec failed")
	p := NewProbeService(fixedRunner("", boom), "ffprobe")
	_, err := p.Probe(context.Background(), "clip.mp4")
	assert.ErrorIs(t, err, boom)
}
