// Package mongodb implements the product repository against MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/utafrali/product-image-ingest/pkg/errors"
	"github.com/utafrali/product-image-ingest/internal/domain"
)

// CollectionProducts is the products collection name.
const CollectionProducts = "products"

// ProductRepository implements repository.ProductRepository against a
// MongoDB collection.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a new MongoDB-backed product repository.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		coll: db.Collection(CollectionProducts),
	}
}

// FindByColor retrieves the product matching (productId, color).
func (r *ProductRepository) FindByColor(ctx context.Context, productID, color string) (*domain.Product, error) {
	filter := bson.M{
		"productId":    productID,
		"colors.value": color,
	}

	var product domain.Product
	if err := r.coll.FindOne(ctx, filter).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", productID, err)
	}

	return &product, nil
}

// MarkColorUploaded sets hasUploadedImage on the matched color variant.
func (r *ProductRepository) MarkColorUploaded(ctx context.Context, productID, color string) error {
	filter := bson.M{
		"productId":    productID,
		"colors.value": color,
	}
	update := bson.M{
		"$set": bson.M{"colors.$.hasUploadedImage": true},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark color uploaded for %s/%s: %w", productID, color, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrProductNotFound
	}

	return nil
}

// AppendImage appends the image to the matched color's image sequence.
//
// The default-image decision is made atomically at the database: the first
// update only matches when no image anywhere under the product carries
// isDefault=true, so concurrent first uploads for different colors cannot
// both claim the default. When that update matches nothing, the image is
// pushed again with isDefault=false against the unconditional filter.
func (r *ProductRepository) AppendImage(ctx context.Context, productID, color string, image *domain.ProductImage) (bool, error) {
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"c.value": color}},
	})
	push := bson.M{"$push": bson.M{"colors.$[c].images": image}}

	// First attempt: claim the default. $ne on the nested array path matches
	// only documents where no image element has isDefault=true.
	image.IsDefault = true
	claimFilter := bson.M{
		"productId":               productID,
		"colors.value":            color,
		"colors.images.isDefault": bson.M{"$ne": true},
	}

	res, err := r.coll.UpdateOne(ctx, claimFilter, push, opts)
	if err != nil {
		return false, fmt.Errorf("append default image for %s/%s: %w", productID, color, err)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	// A default already exists somewhere under the product.
	image.IsDefault = false
	filter := bson.M{
		"productId":    productID,
		"colors.value": color,
	}

	res, err = r.coll.UpdateOne(ctx, filter, push, opts)
	if err != nil {
		return false, fmt.Errorf("append image for %s/%s: %w", productID, color, err)
	}
	if res.MatchedCount == 0 {
		return false, apperrors.ErrProductNotFound
	}

	return false, nil
}
