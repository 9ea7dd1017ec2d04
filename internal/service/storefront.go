package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/internal/video"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// SourceParam and SourceQR mark storefront visits that came from the
// seller's printed QR code.
const (
	SourceParam = "source"
	SourceQR    = "qr"
)

// StorefrontService renders public storefront pages.
type StorefrontService struct {
	profiles repository.ProfileRepository
	settings repository.SettingsRepository
	links    repository.LinkRepository
	products repository.ProductRepository
	qr       repository.QRRepository
	cache    StorefrontCache
	sessions *cart.Sessions
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewStorefrontService creates a new storefront service. cache may be nil.
func NewStorefrontService(
	profiles repository.ProfileRepository,
	settings repository.SettingsRepository,
	links repository.LinkRepository,
	products repository.ProductRepository,
	qr repository.QRRepository,
	cache StorefrontCache,
	sessions *cart.Sessions,
	producer *event.Producer,
	logger *slog.Logger,
) *StorefrontService {
	return &StorefrontService{
		profiles: profiles,
		settings: settings,
		links:    links,
		products: products,
		qr:       qr,
		cache:    cache,
		sessions: sessions,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ProfileView is the storefront header.
type ProfileView struct {
	Username            string `json:"username"`
	BusinessName        string `json:"business_name"`
	BusinessDescription string `json:"business_description,omitempty"`
	LogoURL             string `json:"business_logo_url,omitempty"`
	HeroBannerURL       string `json:"hero_banner_url,omitempty"`
}

// LinkView is a storefront button with its href already resolved.
type LinkView struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Href          string          `json:"href"`
	Type          domain.LinkType `json:"type"`
	IconType      domain.IconType `json:"icon_type"`
	OpensInNewTab bool            `json:"opens_in_new_tab"`
	EmbedURL      string          `json:"embed_url,omitempty"`
	ThumbnailURL  string          `json:"thumbnail_url,omitempty"`
}

// ProductView is a product card.
type ProductView struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Price        string             `json:"price"`
	Images       []string           `json:"images"`
	Size         domain.ProductSize `json:"size"`
	Stock        *int               `json:"stock_quantity"`
	LowStock     bool               `json:"low_stock"`
	CanAddToCart bool               `json:"can_add_to_cart"`
}

// Page is everything a storefront visit renders.
type Page struct {
	Profile    ProfileView      `json:"profile"`
	Theme      domain.Settings  `json:"theme"`
	Links      []LinkView       `json:"links"`
	Products   []ProductView    `json:"products"`
	Banner     checkout.Banner  `json:"banner"`
	CartID     string           `json:"cart_id"`
	CartButton *cart.ButtonView `json:"cart_button"`
}

// Load reads a storefront from the database. Only active links and
// products are included.
func (s *StorefrontService) Load(ctx context.Context, username string) (*domain.Storefront, error) {
	profile, err := s.profiles.GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("storefront", username)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	settings, err := s.settings.Get(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	links, err := s.links.List(ctx, profile.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	products, err := s.products.List(ctx, profile.ID, true)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &domain.Storefront{
		Profile:  *profile,
		Settings: settings.WithDefaults(),
		Links:    links,
		Products: products,
	}, nil
}

// Get returns the storefront for username, through the cache when one is
// configured.
func (s *StorefrontService) Get(ctx context.Context, username string) (*domain.Storefront, error) {
	username = normalizeUsername(username)
	if s.cache == nil {
		return s.Load(ctx, username)
	}
	return s.cache.Get(ctx, username, s.Load)
}

// Invalidate drops the cached storefront. Errors are logged only; the entry
// expires on its own.
func (s *StorefrontService) Invalidate(ctx context.Context, username string) {
	if s.cache == nil || username == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, normalizeUsername(username)); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate storefront cache",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
	}
}

// Page renders a visit. Every visit starts with a fresh, empty cart.
func (s *StorefrontService) Page(ctx context.Context, username string, query url.Values) (*Page, error) {
	sf, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}

	if query.Get(SourceParam) == SourceQR {
		s.recordScan(ctx, &sf.Profile)
	}

	store := s.sessions.Create(sf.Profile.ID)

	page := &Page{
		Profile: ProfileView{
			Username:            sf.Profile.Username,
			BusinessName:        sf.Profile.BusinessName,
			BusinessDescription: sf.Profile.BusinessDescription,
			LogoURL:             sf.Profile.LogoURL,
			HeroBannerURL:       sf.Profile.HeroBannerURL,
		},
		Theme:      sf.Settings.WithDefaults(),
		Links:      make([]LinkView, 0, len(sf.Links)),
		Products:   make([]ProductView, 0, len(sf.Products)),
		Banner:     checkout.BannerFromQuery(query),
		CartID:     store.ID(),
		CartButton: cart.Button(store),
	}
	for i := range sf.Links {
		page.Links = append(page.Links, newLinkView(&sf.Links[i]))
	}
	for i := range sf.Products {
		page.Products = append(page.Products, newProductView(&sf.Products[i]))
	}
	return page, nil
}

// recordScan counts a QR visit. A failure never blocks the page.
func (s *StorefrontService) recordScan(ctx context.Context, profile *domain.Profile) {
	at := s.now().UTC()
	if err := s.qr.RecordScan(ctx, profile.ID, at); err != nil {
		s.logger.ErrorContext(ctx, "failed to record qr scan",
			slog.String("profile_id", profile.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.producer.PublishQRScanned(ctx, profile, at); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish storefront.qr_scanned event",
			slog.String("profile_id", profile.ID),
			slog.String("error", err.Error()),
		)
	}
}

func newLinkView(l *domain.Link) LinkView {
	v := LinkView{
		ID:            l.ID,
		Title:         l.Title,
		Subtitle:      l.Subtitle,
		Href:          l.ResolvedHref(),
		Type:          l.Type,
		IconType:      l.IconType,
		OpensInNewTab: l.OpensInNewTab(),
	}
	if l.Type == domain.LinkTypeVideo {
		v.EmbedURL, _ = video.EmbedURL(l.Href)
		v.ThumbnailURL, _ = video.ThumbnailURL(l.Href)
	}
	return v
}

func newProductView(p *domain.Product) ProductView {
	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        cart.FormatPrice(p.Price),
		Images:       p.AllImages(),
		Size:         p.Size,
		Stock:        p.StockQuantity,
		LowStock:     p.LowStock(),
		CanAddToCart: !p.OutOfStock(),
	}
}
