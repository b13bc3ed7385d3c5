package service

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"signage-service/ddd/domain/layout"
	"signage-service/ddd/domain/vo"
	"signage-service/pkg/config"
	"signage-service/pkg/logger"
)

// ImageService normalizes still images and produces width-capped variants
// for both orientations.
type ImageService struct {
	layout layout.Layout
	cfg    config.ImageConfig
}

// ImageResult reports what the image pipeline produced for one upload.
type ImageResult struct {
	Normalized   bool
	Width        int
	Height       int
	Orientations []vo.Orientation
	Stages       []vo.StageResult
}

func NewImageService(lay layout.Layout, cfg config.ImageConfig) *ImageService {
	return &ImageService{layout: lay, cfg: cfg}
}

// GenerateDerivatives decodes the source, writes a normalized JPEG for each
// orientation, and resizes the configured width variants. A source that does
// not decode degrades to byte-for-byte copies so the catalog still serves
// something; variant failures clone the landscape set into portrait.
func (s *ImageService) GenerateDerivatives(target, itemID, sourcePath string) (*ImageResult, error) {
	res := &ImageResult{Orientations: []vo.Orientation{vo.OrientationLandscape}}

	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		logger.Warnf("image decode failed item=%s error=%v; passing source through", itemID, err)
		return s.passthrough(target, itemID, sourcePath, res)
	}

	bounds := src.Bounds()
	res.Width, res.Height = bounds.Dx(), bounds.Dy()
	res.Normalized = true

	if err := s.writeOrientation(target, itemID, vo.OrientationLandscape, src, res); err != nil {
		return nil, err
	}

	if !s.cfg.PortraitEnabled {
		res.Stages = append(res.Stages, vo.Skipped("image_portrait", "disabled"))
		return res, nil
	}

	portrait := imaging.Rotate90(src)
	// A rotated frame must come out taller than wide; anything else gets
	// one corrective turn.
	if pb := portrait.Bounds(); pb.Dx() > pb.Dy() {
		portrait = imaging.Rotate90(portrait)
	}
	if err := s.writeOrientation(target, itemID, vo.OrientationPortrait, portrait, res); err != nil {
		logger.Warnf("portrait image generation failed item=%s error=%v; cloning landscape set", itemID, err)
		if cloneErr := s.clonePortraitFromLandscape(target, itemID); cloneErr != nil {
			res.Stages = append(res.Stages, vo.Failed("image_portrait", cloneErr))
			return res, nil
		}
		res.Stages = append(res.Stages, vo.Skipped("image_portrait", "cloned from landscape"))
	}
	res.Orientations = append(res.Orientations, vo.OrientationPortrait)
	return res, nil
}

// writeOrientation stores the normalized image and every configured width
// variant for one orientation. Variants wider than the source are skipped.
func (s *ImageService) writeOrientation(target, itemID string, o vo.Orientation, img image.Image, res *ImageResult) error {
	stage := "image_" + o.String()
	normalized := s.layout.NormalizedImage(target, itemID, o)
	if err := os.MkdirAll(filepath.Dir(normalized), 0o755); err != nil {
		return fmt.Errorf("create orientation dir: %w", err)
	}
	if err := imaging.Save(img, normalized, imaging.JPEGQuality(s.cfg.Quality)); err != nil {
		return fmt.Errorf("save normalized image: %w", err)
	}

	srcWidth := img.Bounds().Dx()
	for _, w := range s.cfg.Widths {
		if w >= srcWidth {
			continue
		}
		variant := imaging.Resize(img, w, 0, imaging.Lanczos)
		out := s.layout.ImageVariant(target, itemID, o, w)
		if err := imaging.Save(variant, out, imaging.JPEGQuality(s.cfg.Quality)); err != nil {
			return fmt.Errorf("save %dw variant: %w", w, err)
		}
	}
	res.Stages = append(res.Stages, vo.Done(stage, normalized))
	return nil
}

// passthrough copies the undecodable source into both orientation slots so
// downstream URLs stay resolvable.
func (s *ImageService) passthrough(target, itemID, sourcePath string, res *ImageResult) (*ImageResult, error) {
	orientations := []vo.Orientation{vo.OrientationLandscape}
	if s.cfg.PortraitEnabled {
		orientations = append(orientations, vo.OrientationPortrait)
	}
	for _, o := range orientations {
		dst := s.layout.NormalizedImage(target, itemID, o)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := copyFile(sourcePath, dst); err != nil {
			return nil, fmt.Errorf("copy source image: %w", err)
		}
	}
	if s.cfg.PortraitEnabled {
		res.Orientations = append(res.Orientations, vo.OrientationPortrait)
	}
	res.Stages = append(res.Stages, vo.Skipped("image_normalize", "source not decodable"))
	return res, nil
}

// clonePortraitFromLandscape duplicates the landscape normalized image and
// its variants under the portrait directory.
func (s *ImageService) clonePortraitFromLandscape(target, itemID string) error {
	landscape := s.layout.NormalizedImage(target, itemID, vo.OrientationLandscape)
	portrait := s.layout.NormalizedImage(target, itemID, vo.OrientationPortrait)
	if err := os.MkdirAll(filepath.Dir(portrait), 0o755); err != nil {
		return err
	}
	if err := copyFile(landscape, portrait); err != nil {
		return err
	}
	for _, w := range s.cfg.Widths {
		from := s.layout.ImageVariant(target, itemID, vo.OrientationLandscape, w)
		if !layout.ExistsNonEmpty(from) {
			continue
		}
		if err := copyFile(from, s.layout.ImageVariant(target, itemID, vo.OrientationPortrait, w)); err != nil {
			return err
		}
	}
	return nil
}
