// Package cloudevent adapts storage finalize CloudEvents to the ingestion
// workflow.
package cloudevent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	ceevent "github.com/cloudevents/sdk-go/v2/event"

	"github.com/utafrali/product-image-ingest/internal/domain"
	"github.com/utafrali/product-image-ingest/internal/service"
	"github.com/utafrali/product-image-ingest/pkg/logger"
)

// storageObjectData is the subset of the google.storage.object.v1.finalized
// payload this service consumes.
type storageObjectData struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Size        string            `json:"size"`
	Metadata    map[string]string `json:"metadata"`
}

// Handler receives object-finalize CloudEvents and drives the workflow.
type Handler struct {
	service *service.IngestService
	logger  *slog.Logger
}

// NewHandler creates a CloudEvent handler for the ingestion workflow.
func NewHandler(svc *service.IngestService, log *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// Handle processes one finalize CloudEvent. It always returns nil after a
// decodable event: there is no caller to report failures to, and a non-nil
// return would make the platform redeliver an event the workflow has
// already routed to the dead-letter namespace.
func (h *Handler) Handle(ctx context.Context, e ceevent.Event) error {
	var data storageObjectData
	if err := e.DataAs(&data); err != nil {
		return fmt.Errorf("decode storage event data: %w", err)
	}
	if data.Name == "" {
		return fmt.Errorf("storage event %s carries no object name", e.ID())
	}

	ctx = logger.WithCorrelationID(ctx, e.ID())
	log := logger.WithContext(ctx, h.logger)

	size, err := strconv.ParseInt(data.Size, 10, 64)
	if err != nil {
		// Size is informational only; a malformed value is not fatal.
		size = 0
	}

	log.InfoContext(ctx, "finalize event received",
		slog.String("bucket", data.Bucket),
		slog.String("object", data.Name),
		slog.Int64("size", size),
	)

	h.service.Ingest(ctx, &domain.UploadEvent{
		Bucket:   data.Bucket,
		Path:     data.Name,
		Size:     size,
		Metadata: data.Metadata,
	})

	return nil
}
