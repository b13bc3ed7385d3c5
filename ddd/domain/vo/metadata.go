package vo

// MediaMetadata is the probe result for a video source. A second probe runs
// after orientation normalization because encoding can change dimensions.
type MediaMetadata struct {
	Rotation        int     `json:"rotation"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	DurationSeconds float64 `json:"duration_seconds"`
	HasAudio        bool    `json:"has_audio"`
}

// NeedsRotation reports whether the source carries a rotation tag that must
// be baked into the pixels.
func (m MediaMetadata) NeedsRotation() bool {
	switch m.Rotation {
	case 90, 180, 270:
		return true
	default:
		return false
	}
}

// IsPortrait reports whether the display dimensions are taller than wide,
// accounting for a 90/270 rotation tag.
func (m MediaMetadata) IsPortrait() bool {
	w, h := m.Width, m.Height
	if m.Rotation == 90 || m.Rotation == 270 {
		w, h = h, w
	}
	return h > w
}
