package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/product-image-ingest/internal/domain"
	"github.com/utafrali/product-image-ingest/internal/repository"
	apperrors "github.com/utafrali/product-image-ingest/pkg/errors"
	"github.com/utafrali/product-image-ingest/pkg/logger"
)

// Decision is the outcome of validating an upload event.
type Decision int

const (
	// DecisionAccept means the upload references a known product color and
	// processing should proceed.
	DecisionAccept Decision = iota

	// DecisionReject means the upload is malformed or unmatched and must be
	// quarantined.
	DecisionReject

	// DecisionSkip means the event must be ignored without any action, to
	// prevent reprocessing loops and duplicate-delivery effects.
	DecisionSkip
)

// Validation carries the decision plus, on accept, the normalized metadata
// and the matched product snapshot. On reject, Err carries the sentinel
// behind Reason so callers can branch on the cause.
type Validation struct {
	Decision Decision
	Reason   string
	Err      error
	Meta     domain.UploadMeta
	Product  *domain.Product
}

// Validator inspects an upload event's metadata and the referenced product
// record.
type Validator struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewValidator creates a metadata validator.
func NewValidator(repo repository.ProductRepository, log *slog.Logger) *Validator {
	return &Validator{
		repo:   repo,
		logger: log,
	}
}

// Validate decides accept, reject, or skip for the given event.
//
// On accept it immediately marks hasUploadedImage on the matched color, so
// a crash mid-processing still records that an upload was attempted.
// A non-nil error means the decision could not be made (repository
// failure); the caller treats it like any other processing failure.
func (v *Validator) Validate(ctx context.Context, evt *domain.UploadEvent) (*Validation, error) {
	log := logger.WithContext(ctx, v.logger)

	// Derived artifacts and already quarantined objects are never
	// reprocessed.
	if domain.IsProcessedPath(evt.Path) {
		return &Validation{Decision: DecisionSkip, Reason: "object lives under processed namespace"}, nil
	}
	if domain.IsDeadLetterPath(evt.Path) {
		return &Validation{Decision: DecisionSkip, Reason: "object lives under dead-letter namespace"}, nil
	}

	// Idempotence guards against duplicate trigger delivery.
	if evt.IsDeadLettered() {
		return &Validation{Decision: DecisionSkip, Reason: "object already carries dead-letter marker"}, nil
	}
	if evt.IsProcessed() {
		return &Validation{Decision: DecisionSkip, Reason: "object already carries processed marker"}, nil
	}

	meta, ok := domain.ExtractUploadMeta(evt.Metadata)
	if !ok {
		return &Validation{
			Decision: DecisionReject,
			Reason:   "missing productId or color metadata",
			Err:      apperrors.ErrMissingMetadata,
		}, nil
	}

	product, err := v.repo.FindByColor(ctx, meta.ProductID, meta.Color)
	if err != nil {
		if errors.Is(err, apperrors.ErrProductNotFound) {
			return &Validation{
				Decision: DecisionReject,
				Reason:   fmt.Sprintf("no product matches productId=%s color=%s", meta.ProductID, meta.Color),
				Err:      err,
			}, nil
		}
		return nil, apperrors.Processing(apperrors.StageRecord, err)
	}

	if err := v.repo.MarkColorUploaded(ctx, meta.ProductID, meta.Color); err != nil {
		return nil, apperrors.Processing(apperrors.StageRecord, err)
	}

	attrs := []any{
		slog.String("product_id", meta.ProductID),
		slog.String("color", meta.Color),
		slog.Bool("product_has_default", product.HasDefaultImage()),
	}
	if c := product.Color(meta.Color); c != nil {
		attrs = append(attrs, slog.Int("color_images", len(c.Images)))
	}
	log.DebugContext(ctx, "upload accepted", attrs...)

	return &Validation{
		Decision: DecisionAccept,
		Meta:     meta,
		Product:  product,
	}, nil
}
