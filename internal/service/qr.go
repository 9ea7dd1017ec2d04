package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
)

// QR image size bounds in pixels.
const (
	DefaultQRSize = 256
	MinQRSize     = 128
	MaxQRSize     = 1024
)

// QRService manages the seller's printable QR code and its scan counter.
type QRService struct {
	profiles repository.ProfileRepository
	qr       repository.QRRepository
	siteURL  string
	logger   *slog.Logger
}

// NewQRService creates a new QR service.
func NewQRService(profiles repository.ProfileRepository, qr repository.QRRepository, siteURL string, logger *slog.Logger) *QRService {
	return &QRService{
		profiles: profiles,
		qr:       qr,
		siteURL:  strings.TrimRight(siteURL, "/"),
		logger:   logger,
	}
}

// QRInfo is the QR panel of the editor.
type QRInfo struct {
	domain.QRMetrics
	TargetURL string `json:"target_url"`
}

// TargetURL is what the code encodes: the storefront tagged as a QR visit.
func (s *QRService) TargetURL(username string) string {
	return s.siteURL + "/" + url.PathEscape(username) + "?" + SourceParam + "=" + SourceQR
}

// Info returns the counter and the encoded URL.
func (s *QRService) Info(ctx context.Context, sellerID string) (*QRInfo, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	metrics, err := s.qr.Get(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get qr metrics: %w", err)
	}
	return &QRInfo{QRMetrics: metrics, TargetURL: s.TargetURL(profile.Username)}, nil
}

// PNG renders the code. size is clamped to [MinQRSize, MaxQRSize]; zero
// means DefaultQRSize.
func (s *QRService) PNG(ctx context.Context, sellerID string, size int) ([]byte, error) {
	switch {
	case size == 0:
		size = DefaultQRSize
	case size < MinQRSize:
		size = MinQRSize
	case size > MaxQRSize:
		size = MaxQRSize
	}

	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	png, err := qrcode.Encode(s.TargetURL(profile.Username), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// Reset zeroes the counter and forgets the last scan.
func (s *QRService) Reset(ctx context.Context, sellerID string) error {
	if err := s.qr.Reset(ctx, sellerID); err != nil {
		return fmt.Errorf("reset qr metrics: %w", err)
	}
	s.logger.InfoContext(ctx, "qr metrics reset", slog.String("seller_id", sellerID))
	return nil
}
