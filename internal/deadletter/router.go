// Package deadletter relocates failed objects to the quarantine namespace.
package deadletter

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path"

	"github.com/utafrali/product-image-ingest/internal/domain"
	"github.com/utafrali/product-image-ingest/internal/metrics"
	"github.com/utafrali/product-image-ingest/internal/storage"
	apperrors "github.com/utafrali/product-image-ingest/pkg/errors"
	"github.com/utafrali/product-image-ingest/pkg/logger"
)

// Router tags and relocates failed objects under dead-letter/.
type Router struct {
	storage storage.Storage
	logger  *slog.Logger

	// prefix overrides the random 3-digit prefix in tests.
	prefix func() string
}

// NewRouter creates a dead-letter router.
func NewRouter(store storage.Storage, log *slog.Logger) *Router {
	return &Router{
		storage: store,
		logger:  log,
		prefix:  randomPrefix,
	}
}

// randomPrefix returns a 3-digit prefix that lowers the collision
// probability for same-named failed objects.
func randomPrefix() string {
	return fmt.Sprintf("%03d", rand.IntN(1000))
}

// Quarantine tags the object with the dead-letter status marker and moves
// it to dead-letter/<nnn>_<baseName>. Each step is best-effort, logged and
// counted; Quarantine never fails, so it cannot mask the original failure
// that triggered it.
func (r *Router) Quarantine(ctx context.Context, key string) {
	log := logger.WithContext(ctx, r.logger)

	dest := domain.DeadLetterPrefix + r.prefix() + "_" + path.Base(key)

	if err := r.storage.SetMetadata(ctx, key, map[string]string{
		domain.MetaKeyStatus: domain.MetaStatusDeadLetter,
	}); err != nil {
		qErr := apperrors.Quarantine("set-metadata", err)
		metrics.QuarantineStepFailures.WithLabelValues("set-metadata").Inc()
		log.ErrorContext(ctx, "failed to tag object for quarantine",
			slog.String("key", key),
			slog.String("error", qErr.Error()),
		)
	}

	if err := r.storage.Move(ctx, key, dest); err != nil {
		qErr := apperrors.Quarantine("move", err)
		metrics.QuarantineStepFailures.WithLabelValues("move").Inc()
		log.ErrorContext(ctx, "failed to move object to dead-letter",
			slog.String("key", key),
			slog.String("destination", dest),
			slog.String("error", qErr.Error()),
		)
		return
	}

	log.InfoContext(ctx, "object quarantined",
		slog.String("key", key),
		slog.String("destination", dest),
	)
}
