// Package event publishes product image domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/product-image-ingest/internal/domain"
	pkgkafka "github.com/utafrali/product-image-ingest/pkg/kafka"
	"github.com/utafrali/product-image-ingest/pkg/logger"
)

// Kafka topic constants for product image domain events.
const (
	TopicImageIngested    = "ecommerce.product.image_ingested"
	TopicImageQuarantined = "ecommerce.product.image_quarantined"
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// Source identifier for events originating from the ingestor.
const SourceImageIngestor = "image-ingestor"

// ImageIngestedData is the payload for a product.image_ingested event.
type ImageIngestedData struct {
	ProductID string            `json:"product_id"`
	Color     string            `json:"color"`
	Name      string            `json:"name"`
	Sizes     map[string]string `json:"sizes"`
	IsDefault bool              `json:"is_default"`
}

// ImageQuarantinedData is the payload for a product.image_quarantined event.
type ImageQuarantinedData struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Producer publishes product image domain events. A nil *Producer is valid
// and publishes nothing, so callers need no enabled check.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the ingestor.
func NewProducer(kafka *pkgkafka.Producer, log *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: log,
	}
}

// PublishImageIngested publishes a product.image_ingested event.
func (p *Producer) PublishImageIngested(ctx context.Context, productID string, img *domain.ProductImage, color string) error {
	if p == nil {
		return nil
	}

	data := ImageIngestedData{
		ProductID: productID,
		Color:     color,
		Name:      img.Name,
		Sizes:     img.Sizes,
		IsDefault: img.IsDefault,
	}

	event, err := pkgkafka.NewEvent(TopicImageIngested, productID, AggregateTypeProduct, SourceImageIngestor, data)
	if err != nil {
		return fmt.Errorf("create image_ingested event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicImageIngested, event); err != nil {
		return fmt.Errorf("publish image_ingested event: %w", err)
	}

	return nil
}

// PublishImageQuarantined publishes a product.image_quarantined event.
func (p *Producer) PublishImageQuarantined(ctx context.Context, objectPath, reason string) error {
	if p == nil {
		return nil
	}

	data := ImageQuarantinedData{
		Path:   objectPath,
		Reason: reason,
	}

	event, err := pkgkafka.NewEvent(TopicImageQuarantined, objectPath, AggregateTypeProduct, SourceImageIngestor, data)
	if err != nil {
		return fmt.Errorf("create image_quarantined event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicImageQuarantined, event); err != nil {
		return fmt.Errorf("publish image_quarantined event: %w", err)
	}

	return nil
}
