package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/product-image-ingest/internal/deadletter"
	"github.com/utafrali/product-image-ingest/internal/domain"
	"github.com/utafrali/product-image-ingest/internal/metrics"
	"github.com/utafrali/product-image-ingest/internal/storage/memory"
	"github.com/utafrali/product-image-ingest/internal/variant"
	apperrors "github.com/utafrali/product-image-ingest/pkg/errors"
)

// --- Mock Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) FindByColor(ctx context.Context, productID, color string) (*domain.Product, error) {
	args := m.Called(ctx, productID, color)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) MarkColorUploaded(ctx context.Context, productID, color string) error {
	args := m.Called(ctx, productID, color)
	return args.Error(0)
}

func (m *mockProductRepository) AppendImage(ctx context.Context, productID, color string, image *domain.ProductImage) (bool, error) {
	args := m.Called(ctx, productID, color, image)
	return args.Bool(0), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockProductRepository, store *memory.Storage) *IngestService {
	log := newTestLogger()
	router := deadletter.NewRouter(store, log)
	return NewIngestService(repo, store, variant.NewGenerator(), router, nil, log, time.Minute, "")
}

// pngBytes encodes a PNG of the given dimensions.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testProduct() *domain.Product {
	return &domain.Product{
		ProductID: "123",
		Colors: []domain.ColorVariant{
			{Value: "Red"},
			{Value: "Blue"},
		},
	}
}

func deadLetterKeys(store *memory.Storage) []string {
	var keys []string
	for _, k := range store.Keys() {
		if strings.HasPrefix(k, "dead-letter/") {
			keys = append(keys, k)
		}
	}
	return keys
}

func productKeys(store *memory.Storage) []string {
	var keys []string
	for _, k := range store.Keys() {
		if strings.HasPrefix(k, "products/") {
			keys = append(keys, k)
		}
	}
	return keys
}

// durationSamples reads the sample count of the run-duration histogram for
// one outcome. Metrics are process-global, so tests compare deltas.
func durationSamples(t *testing.T, outcome string) uint64 {
	t.Helper()

	m, ok := metrics.Duration.WithLabelValues(outcome).(prometheus.Metric)
	require.True(t, ok)

	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	return pb.GetHistogram().GetSampleCount()
}

// --- Tests ---

func TestIngest_HappyPath(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)
	ctx := context.Background()

	store.Put("raw/shirt.png", pngBytes(t, 1600, 1200), map[string]string{
		"productId": "123", "color": "Red",
	})

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(testProduct(), nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(nil)

	var recorded *domain.ProductImage
	repo.On("AppendImage", mock.Anything, "123", "Red", mock.AnythingOfType("*domain.ProductImage")).
		Run(func(args mock.Arguments) {
			recorded = args.Get(3).(*domain.ProductImage)
		}).
		Return(true, nil)

	svc.Ingest(ctx, &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	// The original no longer exists at its source path.
	assert.False(t, store.Exists("raw/shirt.png"))
	assert.Empty(t, deadLetterKeys(store))

	// Exactly 3 derived variants under products/.
	assert.ElementsMatch(t, []string{
		"products/123/Red/shirt_200.jpg",
		"products/123/Red/shirt_800.jpg",
		"products/123/Red/shirt_1500.jpg",
	}, productKeys(store))

	// Variants carry the immutable cache directive and processed marker.
	for _, k := range productKeys(store) {
		assert.Equal(t, CacheControlImmutable, store.CacheControl(k))
		assert.Equal(t, "true", store.Metadata(k)["processed"])
	}

	// The recorded image carries the original base name and one URL per
	// tier.
	require.NotNil(t, recorded)
	assert.Equal(t, "shirt.png", recorded.Name)
	assert.Equal(t, map[string]string{
		"thumbnail": "https://storage.googleapis.com/test-bucket/products/123/Red/shirt_200.jpg",
		"medium":    "https://storage.googleapis.com/test-bucket/products/123/Red/shirt_800.jpg",
		"large":     "https://storage.googleapis.com/test-bucket/products/123/Red/shirt_1500.jpg",
	}, recorded.Sizes)
	assert.True(t, recorded.IsDefault)

	repo.AssertExpectations(t)
}

func TestIngest_WebpSource(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	data, err := os.ReadFile(filepath.Join("testdata", "shirt.webp"))
	require.NoError(t, err)
	store.Put("raw/shirt.webp", data, map[string]string{
		"productId": "123", "color": "Red",
	})

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(testProduct(), nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(nil)

	var recorded *domain.ProductImage
	repo.On("AppendImage", mock.Anything, "123", "Red", mock.AnythingOfType("*domain.ProductImage")).
		Run(func(args mock.Arguments) {
			recorded = args.Get(3).(*domain.ProductImage)
		}).
		Return(true, nil)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.webp",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	// A webp original decodes like any other source; variants are always
	// JPEG regardless of the input format.
	assert.False(t, store.Exists("raw/shirt.webp"))
	assert.Empty(t, deadLetterKeys(store))
	assert.ElementsMatch(t, []string{
		"products/123/Red/shirt_200.jpg",
		"products/123/Red/shirt_800.jpg",
		"products/123/Red/shirt_1500.jpg",
	}, productKeys(store))

	require.NotNil(t, recorded)
	assert.Equal(t, "shirt.webp", recorded.Name)
}

func TestIngest_MissingMetadata(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("raw/shirt.png", pngBytes(t, 100, 100), nil)
	rejectedBefore := durationSamples(t, metrics.OutcomeRejected)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{},
	})

	// Object ends under dead-letter/ with the status tag, never under
	// products/.
	assert.False(t, store.Exists("raw/shirt.png"))
	assert.Empty(t, productKeys(store))

	dl := deadLetterKeys(store)
	require.Len(t, dl, 1)
	assert.Regexp(t, regexp.MustCompile(`^dead-letter/\d{3}_shirt\.png$`), dl[0])
	assert.Equal(t, "dead-letter", store.Metadata(dl[0])["status"])

	// Rejected runs show up in the duration histogram too.
	assert.Equal(t, rejectedBefore+1, durationSamples(t, metrics.OutcomeRejected))

	repo.AssertNotCalled(t, "FindByColor", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_UnmatchedProductColor(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("raw/shirt.png", pngBytes(t, 100, 100), map[string]string{
		"productId": "123", "color": "Blue",
	})

	repo.On("FindByColor", mock.Anything, "123", "Blue").Return(nil, apperrors.ErrProductNotFound)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{"productId": "123", "color": "Blue"},
	})

	assert.Empty(t, productKeys(store))
	require.Len(t, deadLetterKeys(store), 1)

	repo.AssertNotCalled(t, "MarkColorUploaded", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_SkipsProcessedNamespace(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("products/123/Red/shirt_200.jpg", []byte("jpeg"), nil)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket: "test-bucket",
		Path:   "products/123/Red/shirt_200.jpg",
	})

	// Nothing moved, nothing queried.
	assert.True(t, store.Exists("products/123/Red/shirt_200.jpg"))
	assert.Empty(t, deadLetterKeys(store))
	repo.AssertNotCalled(t, "FindByColor", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_IdempotentOnReplayedEvent(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
	}{
		{
			name:     "processed marker",
			metadata: map[string]string{"processed": "true", "productId": "123", "color": "Red"},
		},
		{
			name:     "dead-letter marker",
			metadata: map[string]string{"status": "dead-letter", "productId": "123", "color": "Red"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockProductRepository)
			store := memory.New("test-bucket")
			svc := newTestService(repo, store)

			store.Put("raw/shirt.png", pngBytes(t, 100, 100), tt.metadata)

			svc.Ingest(context.Background(), &domain.UploadEvent{
				Bucket:   "test-bucket",
				Path:     "raw/shirt.png",
				Metadata: tt.metadata,
			})

			// Replay performs no further action.
			assert.True(t, store.Exists("raw/shirt.png"))
			assert.Empty(t, productKeys(store))
			assert.Empty(t, deadLetterKeys(store))
			repo.AssertNotCalled(t, "FindByColor", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestIngest_SubsequentImageNotDefault(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	product := testProduct()
	product.Colors[0].Images = []domain.ProductImage{
		{Name: "first.png", IsDefault: true},
	}

	store.Put("raw/second.png", pngBytes(t, 300, 300), map[string]string{
		"productId": "123", "color": "Red",
	})

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(product, nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(nil)

	var recorded *domain.ProductImage
	repo.On("AppendImage", mock.Anything, "123", "Red", mock.AnythingOfType("*domain.ProductImage")).
		Run(func(args mock.Arguments) {
			recorded = args.Get(3).(*domain.ProductImage)
		}).
		Return(false, nil)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/second.png",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	require.NotNil(t, recorded)
	assert.False(t, recorded.IsDefault)
	assert.Len(t, productKeys(store), 3)
}

func TestIngest_UndecodableSourceQuarantined(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("raw/shirt.png", []byte("not an image"), map[string]string{
		"productId": "123", "color": "Red",
	})
	quarantinedBefore := durationSamples(t, metrics.OutcomeQuarantined)

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(testProduct(), nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(nil)

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	assert.Empty(t, productKeys(store))
	require.Len(t, deadLetterKeys(store), 1)
	repo.AssertNotCalled(t, "AppendImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Quarantined runs are observed in the duration histogram as well.
	assert.Equal(t, quarantinedBefore+1, durationSamples(t, metrics.OutcomeQuarantined))
}

func TestIngest_RecordFailureQuarantined(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("raw/shirt.png", pngBytes(t, 300, 300), map[string]string{
		"productId": "123", "color": "Red",
	})

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(testProduct(), nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(nil)
	repo.On("AppendImage", mock.Anything, "123", "Red", mock.AnythingOfType("*domain.ProductImage")).
		Return(false, errors.New("write conflict"))

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	// The original was already deleted before the record stage, so the
	// quarantine move can only log; uploaded variants are not rolled back.
	assert.False(t, store.Exists("raw/shirt.png"))
	assert.Len(t, productKeys(store), 3)
	assert.Empty(t, deadLetterKeys(store))
}

func TestIngest_MarkUploadedFailureQuarantined(t *testing.T) {
	repo := new(mockProductRepository)
	store := memory.New("test-bucket")
	svc := newTestService(repo, store)

	store.Put("raw/shirt.png", pngBytes(t, 300, 300), map[string]string{
		"productId": "123", "color": "Red",
	})

	repo.On("FindByColor", mock.Anything, "123", "Red").Return(testProduct(), nil)
	repo.On("MarkColorUploaded", mock.Anything, "123", "Red").Return(errors.New("primary unavailable"))

	svc.Ingest(context.Background(), &domain.UploadEvent{
		Bucket:   "test-bucket",
		Path:     "raw/shirt.png",
		Metadata: map[string]string{"productId": "123", "color": "Red"},
	})

	assert.Empty(t, productKeys(store))
	require.Len(t, deadLetterKeys(store), 1)
}
