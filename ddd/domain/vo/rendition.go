package vo

import (
	"fmt"
	"sort"
)

// Rendition is one bitrate/resolution tier. It drives both the encoder
// arguments and the STREAM-INF attributes advertised in the HLS master.
type Rendition struct {
	Height    int `json:"height"`
	Width     int `json:"width"`
	Bitrate   int `json:"bitrate"`   // video bits per second
	Bandwidth int `json:"bandwidth"` // advertised peak incl. audio
}

const renditionAudioBitrate = 128_000

// Name returns the tier name used for directories and stream mapping.
func (r Rendition) Name() string {
	return fmt.Sprintf("%dp", r.Height)
}

// defaultBitrateFor maps a tier height to a video bitrate when the operator
// supplies no override.
func defaultBitrateFor(height int) int {
	switch {
	case height <= 360:
		return 700_000
	case height <= 720:
		return 2_000_000
	default:
		return 4_500_000
	}
}

// evenRound rounds down to the nearest even value; encoders reject odd
// dimensions.
func evenRound(v int) int {
	return v &^ 1
}

// BuildLadder turns the operator height list into a deduplicated, ascending
// rendition ladder. Heights are even-rounded first, so 361 and 360 collapse
// into a single tier. Widths assume 16:9 and are even-rounded too.
func BuildLadder(heights []int, overrides map[int]int) []Rendition {
	seen := make(map[int]bool, len(heights))
	ladder := make([]Rendition, 0, len(heights))
	for _, h := range heights {
		h = evenRound(h)
		if h <= 0 || seen[h] {
			continue
		}
		seen[h] = true

		bitrate := defaultBitrateFor(h)
		if override, ok := overrides[h]; ok && override > 0 {
			bitrate = override
		}
		ladder = append(ladder, Rendition{
			Height:    h,
			Width:     evenRound(h * 16 / 9),
			Bitrate:   bitrate,
			Bandwidth: bitrate + renditionAudioBitrate,
		})
	}
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Height < ladder[j].Height })
	return ladder
}

// LadderUpTo keeps tiers that do not exceed the source height, always
// retaining at least the lowest tier so every source gets one rendition.
func LadderUpTo(ladder []Rendition, sourceHeight int) []Rendition {
	if sourceHeight <= 0 || len(ladder) == 0 {
		return ladder
	}
	kept := make([]Rendition, 0, len(ladder))
	for _, r := range ladder {
		if r.Height <= sourceHeight {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, ladder[0])
	}
	return kept
}
