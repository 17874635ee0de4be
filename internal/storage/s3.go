package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/config"
	"github.com/snarg/mallok/internal/task"
)

// S3Store archives source audio in an S3-compatible object store.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3Store creates an S3 archive from config.
func NewS3Store(cfg config.S3Config, log zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		log:    log.With().Str("component", "s3-archive").Logger(),
	}, nil
}

// HeadBucket checks that the bucket exists and credentials are valid.
func (s *S3Store) HeadBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &s.bucket,
	})
	return err
}

// Archive uploads the task's source audio.
func (s *S3Store) Archive(ctx context.Context, t task.Task) error {
	f, err := os.Open(t.AudioPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	key := s.ObjectKey(t)
	contentType := audioContentType(filepath.Ext(t.AudioPath))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   &contentType,
		Metadata: map[string]string{
			"task-id":            t.ID,
			"user-id":            t.UserID,
			"language":           string(t.Language),
			"transcription-type": string(t.ContentType),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.log.Debug().Str("task_id", t.ID).Str("key", key).Int64("bytes", info.Size()).Msg("source archived")
	return nil
}

// ObjectKey returns {prefix}/audio/{user}/{YYYY-MM-DD}/{task_id}{ext}.
func (s *S3Store) ObjectKey(t task.Task) string {
	key := path.Join("audio", t.UserID, t.CreatedAt.UTC().Format("2006-01-02"), t.ID+filepath.Ext(t.AudioPath))
	if s.prefix != "" {
		return s.prefix + "/" + key
	}
	return key
}

func audioContentType(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
