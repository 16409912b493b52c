package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"campus-erp/internal/config"
	"campus-erp/internal/domain"
)

// ErrDisabled is returned when no object store is configured.
var ErrDisabled = errors.New("attachment storage is not configured")

// Service keeps message attachments in object storage.
type Service interface {
	Upload(ctx context.Context, messageID uuid.UUID, upload domain.AttachmentUpload) (*domain.MessageAttachment, error)
	Remove(ctx context.Context, storagePath string)
	URL(storagePath string) string
}

type service struct {
	client  *minio.Client
	bucket  string
	maxSize int64
	cfg     *config.Config
}

// NewService returns a storage service; a nil client yields one that
// rejects every upload.
func NewService(client *minio.Client, cfg *config.Config) Service {
	return &service{
		client:  client,
		bucket:  cfg.MinIOBucket,
		maxSize: cfg.MaxAttachmentSize,
		cfg:     cfg,
	}
}

func (s *service) Upload(ctx context.Context, messageID uuid.UUID, upload domain.AttachmentUpload) (*domain.MessageAttachment, error) {
	if s.client == nil {
		return nil, ErrDisabled
	}
	if upload.FileName == "" {
		return nil, domain.NewValidationError(map[string]string{"attachments": "file name is required"})
	}
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return nil, domain.NewValidationError(map[string]string{
			"attachments": fmt.Sprintf("%s exceeds the maximum size of %d bytes", upload.FileName, s.maxSize),
		})
	}

	reader, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer reader.Close()

	id := uuid.New()
	now := time.Now().UTC()
	storagePath := fmt.Sprintf("messages/%s/%s/%s", now.Format("2006/01"), messageID, id)

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, s.bucket, storagePath, io.LimitReader(reader, upload.Size), upload.Size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return &domain.MessageAttachment{
		ID:          id,
		MessageID:   messageID,
		FileName:    upload.FileName,
		FileSize:    upload.Size,
		MimeType:    mimeType,
		StoragePath: storagePath,
		URL:         s.URL(storagePath),
		CreatedAt:   now,
	}, nil
}

func (s *service) Remove(ctx context.Context, storagePath string) {
	if s.client == nil {
		return
	}
	_ = s.client.RemoveObject(ctx, s.bucket, storagePath, minio.RemoveObjectOptions{})
}

func (s *service) URL(storagePath string) string {
	scheme := "http"
	if s.cfg.MinIOPublicUseSSL {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: s.cfg.MinIOPublicEndpoint, Path: "/" + s.bucket + "/" + storagePath}
	return u.String()
}
