package vo

// Orientation distinguishes the two derivative sets generated per source.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// String returns the orientation name used in paths and URLs.
func (o Orientation) String() string {
	return string(o)
}

// IsValid reports whether the orientation is one of the two known values.
func (o Orientation) IsValid() bool {
	return o == OrientationLandscape || o == OrientationPortrait
}
