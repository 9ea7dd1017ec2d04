package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/storage"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

var extensionByContentType = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
	"application/zip": ".zip",
}

// MediaService stores seller uploads.
type MediaService struct {
	storage  storage.Storage
	maxBytes int64
	logger   *slog.Logger
}

// NewMediaService creates a new media service accepting files up to maxBytes.
func NewMediaService(store storage.Storage, maxBytes int64, logger *slog.Logger) *MediaService {
	return &MediaService{
		storage:  store,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	SellerID    string
	Bucket      string
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// MaxBytes is the largest accepted upload.
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload validates and stores a file under bucket/seller/<uuid><ext> and
// returns its public URL.
func (s *MediaService) Upload(ctx context.Context, input *UploadInput) (*storage.UploadResult, error) {
	if !domain.IsValidBucket(input.Bucket) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("bucket %q is not allowed", input.Bucket))
	}
	if !domain.IsAllowedContentType(input.Bucket, input.ContentType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed", input.ContentType))
	}
	if input.Size <= 0 {
		return nil, apperrors.InvalidInput("file size must be greater than zero")
	}
	if input.Size > s.maxBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("file size %d exceeds maximum allowed size of %d bytes", input.Size, s.maxBytes))
	}

	key := fmt.Sprintf("%s/%s/%s%s", input.Bucket, input.SellerID, uuid.NewString(), extensionByContentType[input.ContentType])

	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: input.ContentType,
		Size:        input.Size,
		Data:        io.LimitReader(input.Data, s.maxBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	s.logger.InfoContext(ctx, "media uploaded",
		slog.String("key", key),
		slog.String("original_name", input.FileName),
		slog.String("content_type", input.ContentType),
		slog.Int64("size", input.Size),
	)
	return result, nil
}
