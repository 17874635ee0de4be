// Package storage keeps uploaded audio on local disk while it is processed
// and optionally archives it to S3 afterwards.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/config"
)

// NewArchive returns the S3 archive when a bucket is configured, or nil.
// Returns an error if S3 is configured but unreachable.
func NewArchive(cfg config.S3Config, log zerolog.Logger) (*S3Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")
	return store, nil
}
