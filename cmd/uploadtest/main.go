// Command uploadtest uploads a local file to the ingest bucket with
// productId/color metadata attached, for manual verification of the
// ingestion workflow.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"

	"github.com/utafrali/product-image-ingest/pkg/logger"
)

func main() {
	var (
		file      = flag.String("file", "", "local image file to upload")
		productID = flag.String("product", "", "productId metadata value")
		color     = flag.String("color", "", "color metadata value")
		bucket    = flag.String("bucket", os.Getenv("STORAGE_BUCKET"), "target bucket")
		prefix    = flag.String("prefix", "raw/", "object key prefix")
	)
	flag.Parse()

	log := logger.New("uploadtest", "info")

	if *file == "" || *productID == "" || *color == "" || *bucket == "" {
		fmt.Fprintln(os.Stderr, "usage: uploadtest -file <path> -product <id> -color <name> [-bucket <name>] [-prefix raw/]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := upload(ctx, log, *bucket, *prefix, *file, *productID, *color); err != nil {
		log.Error("upload failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func upload(ctx context.Context, log *slog.Logger, bucket, prefix, file, productID, color string) error {
	mtype, err := mimetype.DetectFile(file)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	client, err := gcstorage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	key := prefix + filepath.Base(file)
	w := client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = mtype.String()
	w.Metadata = map[string]string{
		"productId": productID,
		"color":     color,
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object: %w", err)
	}

	log.Info("test file uploaded",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.String("content_type", mtype.String()),
		slog.String("product_id", productID),
		slog.String("color", color),
	)
	return nil
}
