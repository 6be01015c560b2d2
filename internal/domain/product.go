package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Size tier labels for derived image variants.
const (
	TierThumbnail = "thumbnail"
	TierMedium    = "medium"
	TierLarge     = "large"
)

// Product is a catalog product document. It is created and maintained by an
// external system; this service only reads it and appends image data.
type Product struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProductID string             `bson:"productId" json:"product_id"`
	Colors    []ColorVariant     `bson:"colors" json:"colors"`
}

// ColorVariant is one color of a product, unique by Value within a product.
type ColorVariant struct {
	Value            string         `bson:"value" json:"value"`
	HasUploadedImage bool           `bson:"hasUploadedImage" json:"has_uploaded_image"`
	Images           []ProductImage `bson:"images" json:"images"`
}

// ProductImage is one ingested image under a color variant. Sizes maps a
// tier label to the public URL of the derived variant.
type ProductImage struct {
	Name      string            `bson:"name" json:"name"`
	Sizes     map[string]string `bson:"sizes" json:"sizes"`
	IsDefault bool              `bson:"isDefault" json:"is_default"`
	Order     int               `bson:"order,omitempty" json:"order,omitempty"`
}

// Color returns the color variant with the given value, or nil.
// Matching is exact and case-sensitive.
func (p *Product) Color(value string) *ColorVariant {
	for i := range p.Colors {
		if p.Colors[i].Value == value {
			return &p.Colors[i]
		}
	}
	return nil
}

// HasDefaultImage reports whether any image across the product's colors is
// already marked as the default display image.
func (p *Product) HasDefaultImage() bool {
	for _, c := range p.Colors {
		for _, img := range c.Images {
			if img.IsDefault {
				return true
			}
		}
	}
	return false
}
