package entity

import "time"

// OrientationURLs groups the derivative URLs for one orientation of an item.
type OrientationURLs struct {
	Video    string   `json:"video,omitempty"`
	HLS      string   `json:"hls,omitempty"`
	Poster   string   `json:"poster,omitempty"`
	Image    string   `json:"image,omitempty"`
	Variants []string `json:"variants,omitempty"`
}

// Empty reports whether no derivative URL is set.
func (u OrientationURLs) Empty() bool {
	return u.Video == "" && u.HLS == "" && u.Poster == "" && u.Image == "" && len(u.Variants) == 0
}

// CatalogItem is one published media item as players consume it.
type CatalogItem struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"` // video | image
	Target     string           `json:"target"`
	Landscape  OrientationURLs  `json:"landscape"`
	Portrait   *OrientationURLs `json:"portrait,omitempty"`
	Width      int              `json:"width,omitempty"`
	Height     int              `json:"height,omitempty"`
	Duration   float64          `json:"duration,omitempty"`
	Normalized bool             `json:"normalized"`
	UpdatedAt  time.Time        `json:"updated_at"`
	ETag       string           `json:"etag"`
}

// Catalog is the versioned per-target manifest served to players.
type Catalog struct {
	Target  string        `json:"target"`
	Version int64         `json:"version"`
	Items   []CatalogItem `json:"items"`
	BuiltAt time.Time     `json:"built_at"`
}
