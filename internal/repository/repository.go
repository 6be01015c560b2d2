package repository

import (
	"context"

	"github.com/utafrali/product-image-ingest/internal/domain"
)

// ProductRepository defines the persistence operations the ingestion
// workflow needs against the product catalog.
type ProductRepository interface {
	// FindByColor retrieves the product with the given productId that has a
	// color variant whose value matches color exactly. Returns
	// errors.ErrProductNotFound when no such product exists.
	FindByColor(ctx context.Context, productID, color string) (*domain.Product, error)

	// MarkColorUploaded sets hasUploadedImage on the matched color variant.
	MarkColorUploaded(ctx context.Context, productID, color string) error

	// AppendImage appends the image to the matched color's image sequence.
	// The image is stored with isDefault=true only if no image anywhere
	// under the product currently holds the default; the decision is a
	// single conditional update, not a read-then-write. Returns whether the
	// stored image became the default.
	AppendImage(ctx context.Context, productID, color string, image *domain.ProductImage) (bool, error)
}
