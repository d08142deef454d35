// Package r2s3 mirrors finished snapshot files to S3-compatible object
// storage (AWS S3, Cloudflare R2, MinIO).
package r2s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// UsePathStyle is needed by MinIO and most local S3 stand-ins.
	UsePathStyle bool
	Timeout      time.Duration
}

// ConfigFromEnv reads TICKCRAFT_S3_* variables. ok is false when no bucket
// is configured, which disables mirroring.
func ConfigFromEnv() (cfg Config, ok bool) {
	cfg = Config{
		Endpoint:        strings.TrimSpace(os.Getenv("TICKCRAFT_S3_ENDPOINT")),
		Region:          strings.TrimSpace(os.Getenv("TICKCRAFT_S3_REGION")),
		Bucket:          strings.TrimSpace(os.Getenv("TICKCRAFT_S3_BUCKET")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("TICKCRAFT_S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("TICKCRAFT_S3_SECRET_ACCESS_KEY")),
		UsePathStyle:    os.Getenv("TICKCRAFT_S3_PATH_STYLE") == "1",
	}
	return cfg, cfg.Bucket != ""
}

// Client uploads local files as objects.
type Client struct {
	bucket  string
	timeout time.Duration
	s3      *s3.Client
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.Region == "" {
		// R2 ignores the region but the signer needs one.
		cfg.Region = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Client{
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		s3:      s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

func (c *Client) PutFile(ctx context.Context, objectKey, localPath string) error {
	objectKey = normalizeObjectKey(objectKey)
	if objectKey == "" {
		return fmt.Errorf("empty object key")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(objectKey),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(contentType(objectKey)),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", objectKey, err)
	}
	return nil
}

func normalizeObjectKey(key string) string {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return ""
	}
	return path.Clean(key)
}

func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".zst"):
		return "application/zstd"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	}
	return "application/octet-stream"
}
