// utils/storage.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Storage persists uploaded media and returns a public URL for it.
type Storage interface {
	Put(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds "<prefix>/<slug>-<uuid><ext>" so keys are unique and URL safe.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return path.Join(prefix, base+"-"+uuid.NewString()+ext)
}

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewR2StorageFromEnv reads CLOUDFLARE_ACCOUNT_ID, R2_ACCESS_KEY_ID,
// R2_ACCESS_KEY_SECRET, R2_BUCKET_NAME and optionally CDN_BASE_URL.
func NewR2StorageFromEnv(ctx context.Context) (*R2Storage, error) {
	accountID := os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	accessKeyID := os.Getenv("R2_ACCESS_KEY_ID")
	accessKeySecret := os.Getenv("R2_ACCESS_KEY_SECRET")
	bucket := os.Getenv("R2_BUCKET_NAME")
	if accountID == "" || accessKeyID == "" || accessKeySecret == "" || bucket == "" {
		return nil, fmt.Errorf("R2 is not configured")
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	baseURL := os.Getenv("CDN_BASE_URL")
	if baseURL == "" {
		baseURL = endpoint
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Storage{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (r *R2Storage) Put(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(fileHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", r.baseURL, key), nil
}

func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}
	return nil
}

// LocalStorage writes uploads under Root and serves them from URLPrefix.
type LocalStorage struct {
	Root      string
	URLPrefix string
}

func (l *LocalStorage) Put(_ context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	if err := SaveFile(fileHeader, filepath.Join(l.Root, filepath.FromSlash(key))); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return strings.TrimRight(l.URLPrefix, "/") + "/" + key, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.Root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
