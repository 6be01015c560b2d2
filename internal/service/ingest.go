// Package service implements the ingestion workflow driven by storage
// finalize events.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/utafrali/product-image-ingest/internal/deadletter"
	"github.com/utafrali/product-image-ingest/internal/domain"
	"github.com/utafrali/product-image-ingest/internal/event"
	"github.com/utafrali/product-image-ingest/internal/metrics"
	"github.com/utafrali/product-image-ingest/internal/repository"
	"github.com/utafrali/product-image-ingest/internal/storage"
	"github.com/utafrali/product-image-ingest/internal/variant"
	apperrors "github.com/utafrali/product-image-ingest/pkg/errors"
	"github.com/utafrali/product-image-ingest/pkg/logger"
)

// CacheControlImmutable is the cache directive written on derived variants.
const CacheControlImmutable = "public, max-age=31536000, immutable"

// IngestService orchestrates one finalize event: validate, derive variants,
// persist them, update the product record, and route failures to the
// dead-letter namespace.
type IngestService struct {
	repo      repository.ProductRepository
	storage   storage.Storage
	generator *variant.Generator
	validator *Validator
	router    *deadletter.Router
	producer  *event.Producer
	logger    *slog.Logger

	timeout time.Duration
	tempDir string
}

// NewIngestService creates the ingestion workflow with all collaborators
// injected.
func NewIngestService(
	repo repository.ProductRepository,
	store storage.Storage,
	gen *variant.Generator,
	router *deadletter.Router,
	producer *event.Producer,
	log *slog.Logger,
	timeout time.Duration,
	tempDir string,
) *IngestService {
	return &IngestService{
		repo:      repo,
		storage:   store,
		generator: gen,
		validator: NewValidator(repo, log),
		router:    router,
		producer:  producer,
		logger:    log,
		timeout:   timeout,
		tempDir:   tempDir,
	}
}

// Ingest runs the workflow for one upload event. It never returns an error:
// the trigger model has no caller to report to, so failures are converted
// into a quarantine action and surfaced via logs and metrics only.
func (s *IngestService) Ingest(ctx context.Context, evt *domain.UploadEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx = logger.WithObjectPath(ctx, evt.Path)
	log := logger.WithContext(ctx, s.logger)
	start := time.Now()

	validation, err := s.validator.Validate(ctx, evt)
	if err != nil {
		log.ErrorContext(ctx, "validation could not complete",
			slog.String("error", err.Error()),
		)
		observeOutcome(metrics.OutcomeQuarantined, start)
		s.quarantine(ctx, evt, err.Error())
		return
	}

	switch validation.Decision {
	case DecisionSkip:
		log.InfoContext(ctx, "event skipped", slog.String("reason", validation.Reason))
		observeOutcome(metrics.OutcomeSkipped, start)
		return

	case DecisionReject:
		vErr := apperrors.Validation(validation.Reason, validation.Err)
		log.WarnContext(ctx, "upload rejected", slog.String("reason", validation.Reason))
		observeOutcome(metrics.OutcomeRejected, start)
		metrics.FailuresTotal.WithLabelValues(apperrors.Classify(vErr), "").Inc()
		s.quarantine(ctx, evt, validation.Reason)
		return
	}

	img, err := s.process(ctx, evt, validation.Meta)
	if err != nil {
		log.ErrorContext(ctx, "processing failed",
			slog.String("stage", apperrors.Stage(err)),
			slog.String("error", err.Error()),
		)
		metrics.FailuresTotal.WithLabelValues(apperrors.Classify(err), apperrors.Stage(err)).Inc()
		observeOutcome(metrics.OutcomeQuarantined, start)
		s.quarantine(ctx, evt, err.Error())
		return
	}

	observeOutcome(metrics.OutcomeCompleted, start)

	if err := s.producer.PublishImageIngested(ctx, validation.Meta.ProductID, img, validation.Meta.Color); err != nil {
		log.ErrorContext(ctx, "failed to publish image_ingested event",
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "upload ingested",
		slog.String("product_id", validation.Meta.ProductID),
		slog.String("color", validation.Meta.Color),
		slog.Bool("is_default", img.IsDefault),
		slog.Duration("took", time.Since(start)),
	)
}

// observeOutcome records a terminal outcome and its run duration. Every
// return path of Ingest reports exactly one outcome.
func observeOutcome(outcome string, start time.Time) {
	metrics.EventsTotal.WithLabelValues(outcome).Inc()
	metrics.Duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// process drives the post-validation stages: download, generate, upload,
// delete original, record result. Temporary local copies live in a
// per-invocation scratch directory removed on all paths.
func (s *IngestService) process(ctx context.Context, evt *domain.UploadEvent, meta domain.UploadMeta) (*domain.ProductImage, error) {
	scratch, err := os.MkdirTemp(s.tempDir, "ingest-")
	if err != nil {
		return nil, apperrors.Processing(apperrors.StageDownload, err)
	}
	defer os.RemoveAll(scratch)

	baseName := path.Base(evt.Path)
	sourcePath := filepath.Join(scratch, baseName)

	if err := s.download(ctx, evt.Path, sourcePath); err != nil {
		return nil, apperrors.Processing(apperrors.StageDownload, err)
	}

	variants, err := s.generator.Generate(sourcePath)
	if err != nil {
		return nil, apperrors.Processing(apperrors.StageGenerate, err)
	}
	defer variant.Cleanup(variants)

	sizes := make(map[string]string, len(variants))
	for _, v := range variants {
		url, err := s.uploadVariant(ctx, meta, v)
		if err != nil {
			return nil, apperrors.Processing(apperrors.StageUpload, err)
		}
		sizes[v.Tier] = url
		metrics.VariantsGenerated.WithLabelValues(v.Tier).Inc()
	}

	if err := s.storage.Delete(ctx, evt.Path); err != nil {
		return nil, apperrors.Processing(apperrors.StageDelete, err)
	}

	img := &domain.ProductImage{
		Name:  baseName,
		Sizes: sizes,
	}

	isDefault, err := s.repo.AppendImage(ctx, meta.ProductID, meta.Color, img)
	if err != nil {
		return nil, apperrors.Processing(apperrors.StageRecord, err)
	}
	img.IsDefault = isDefault

	return img, nil
}

// download copies the remote object to a local file.
func (s *IngestService) download(ctx context.Context, key, localPath string) error {
	r, err := s.storage.Download(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("copy object %s to %s: %w", key, localPath, err)
	}
	return nil
}

// uploadVariant writes one derived variant under the processed namespace
// with a long-lived immutable cache directive and the processed marker.
func (s *IngestService) uploadVariant(ctx context.Context, meta domain.UploadMeta, v variant.Variant) (string, error) {
	f, err := os.Open(v.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	key := fmt.Sprintf("%s%s/%s/%s", domain.ProcessedPrefix, meta.ProductID, meta.Color, v.Name)

	res, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:          key,
		ContentType:  "image/jpeg",
		CacheControl: CacheControlImmutable,
		Metadata: map[string]string{
			domain.MetaKeyProcessed: domain.MetaProcessedTrue,
		},
		Data: f,
	})
	if err != nil {
		return "", err
	}

	return res.URL, nil
}

// quarantine routes the object to the dead-letter namespace and publishes
// the quarantined event. Quarantining itself never raises.
func (s *IngestService) quarantine(ctx context.Context, evt *domain.UploadEvent, reason string) {
	s.router.Quarantine(ctx, evt.Path)

	if err := s.producer.PublishImageQuarantined(ctx, evt.Path, reason); err != nil {
		logger.WithContext(ctx, s.logger).ErrorContext(ctx, "failed to publish image_quarantined event",
			slog.String("error", err.Error()),
		)
	}
}
