// Package variant derives resized encoded variants from a source image.
package variant

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Register webp so sources uploaded as webp can be decoded.
	_ "golang.org/x/image/webp"

	"github.com/utafrali/product-image-ingest/internal/domain"
)

// Tier is one named target size in the resize configuration.
type Tier struct {
	Label string
	Bound int
}

// JPEGQuality is the fixed encoding quality for derived variants.
const JPEGQuality = 85

// Tiers is the fixed, ordered resize configuration.
var Tiers = []Tier{
	{Label: domain.TierThumbnail, Bound: 200},
	{Label: domain.TierMedium, Bound: 800},
	{Label: domain.TierLarge, Bound: 1500},
}

// Variant is one generated encoded file for a tier.
type Variant struct {
	Tier  string
	Width int
	Path  string
	Name  string
}

// Generator produces resized JPEG variants of a source image. Variant files
// are written next to the source, which the workflow places in a
// per-invocation scratch directory.
type Generator struct{}

// NewGenerator creates a variant generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate decodes the source image and produces one JPEG variant per tier,
// in declared tier order. Each variant fits inside its tier bound on both
// dimensions and is never upscaled past the original. A failure on any tier
// removes the variants produced so far and aborts.
//
// The variant file name is <baseNameWithoutExt>_<tierBound>.jpg.
func (g *Generator) Generate(sourcePath string) ([]Variant, error) {
	src, err := imaging.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	variants := make([]Variant, 0, len(Tiers))
	for _, tier := range Tiers {
		bound := tier.Bound
		img := src
		if src.Bounds().Dx() > bound || src.Bounds().Dy() > bound {
			img = imaging.Fit(src, bound, bound, imaging.Lanczos)
		}

		name := fmt.Sprintf("%s_%d.jpg", base, bound)
		out := filepath.Join(filepath.Dir(sourcePath), name)
		if err := imaging.Save(img, out, imaging.JPEGQuality(JPEGQuality)); err != nil {
			Cleanup(variants)
			return nil, fmt.Errorf("encode %s variant: %w", tier.Label, err)
		}

		variants = append(variants, Variant{
			Tier:  tier.Label,
			Width: bound,
			Path:  out,
			Name:  name,
		})
	}

	return variants, nil
}

// Cleanup removes the files of the given variants. Missing files are
// ignored.
func Cleanup(variants []Variant) {
	for _, v := range variants {
		os.Remove(v.Path)
	}
}
