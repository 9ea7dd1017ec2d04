package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
	"github.com/pwerioflow/link/internal/video"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/slug"
)

// StorefrontInvalidator drops cached storefronts after edits.
type StorefrontInvalidator interface {
	Invalidate(ctx context.Context, username string)
}

// AdminService implements the seller's storefront editor.
type AdminService struct {
	profiles      repository.ProfileRepository
	settings      repository.SettingsRepository
	links         repository.LinkRepository
	products      repository.ProductRepository
	qr            repository.QRRepository
	subscriptions repository.SubscriptionRepository
	storefronts   StorefrontInvalidator
	logger        *slog.Logger
	now           func() time.Time
}

// NewAdminService creates a new admin service.
func NewAdminService(
	profiles repository.ProfileRepository,
	settings repository.SettingsRepository,
	links repository.LinkRepository,
	products repository.ProductRepository,
	qr repository.QRRepository,
	subscriptions repository.SubscriptionRepository,
	storefronts StorefrontInvalidator,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		profiles:      profiles,
		settings:      settings,
		links:         links,
		products:      products,
		qr:            qr,
		subscriptions: subscriptions,
		storefronts:   storefronts,
		logger:        logger,
		now:           time.Now,
	}
}

// Dashboard is everything the editor shows at once.
type Dashboard struct {
	Profile  *domain.Profile  `json:"profile"`
	Settings domain.Settings  `json:"settings"`
	Links    []domain.Link    `json:"links"`
	Products []domain.Product `json:"products"`
	QR       domain.QRMetrics `json:"qr"`
	Access   domain.Access    `json:"subscription"`
}

// Dashboard loads the seller's full editor state, inactive entries included.
func (s *AdminService) Dashboard(ctx context.Context, sellerID string) (*Dashboard, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	settings, err := s.settings.Get(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	links, err := s.links.List(ctx, sellerID, false)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	products, err := s.products.List(ctx, sellerID, false)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	qr, err := s.qr.Get(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get qr metrics: %w", err)
	}
	sub, err := s.subscriptions.GetByProfile(ctx, sellerID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &Dashboard{
		Profile:  profile,
		Settings: settings.WithDefaults(),
		Links:    links,
		Products: products,
		QR:       qr,
		Access:   domain.CheckAccess(sub, s.now()),
	}, nil
}

// invalidateSeller drops the seller's cached storefront under its current
// username, which may differ from the one in the caller's token.
func (s *AdminService) invalidateSeller(ctx context.Context, sellerID string) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot resolve username for cache invalidation",
			slog.String("seller_id", sellerID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.storefronts.Invalidate(ctx, profile.Username)
}

// --- Profile ---

// UpdateProfileInput holds the editable storefront header fields.
type UpdateProfileInput struct {
	Username            string `json:"username" validate:"required,max=60"`
	BusinessName        string `json:"business_name" validate:"required,min=2,max=120"`
	BusinessDescription string `json:"business_description" validate:"max=500"`
	LogoURL             string `json:"business_logo_url" validate:"omitempty,url"`
	HeroBannerURL       string `json:"hero_banner_url" validate:"omitempty,url"`
}

// UpdateProfile saves the header fields. The username is slug-normalized.
func (s *AdminService) UpdateProfile(ctx context.Context, sellerID string, input *UpdateProfileInput) (*domain.Profile, error) {
	username := slug.Username(input.Username)
	if len(username) < 3 {
		return nil, apperrors.InvalidInput("username must have at least 3 letters or digits")
	}
	if domain.IsReservedUsername(username) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("username %q is reserved", username))
	}

	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	previous := profile.Username

	profile.Username = username
	profile.BusinessName = strings.TrimSpace(input.BusinessName)
	profile.BusinessDescription = strings.TrimSpace(input.BusinessDescription)
	profile.LogoURL = input.LogoURL
	profile.HeroBannerURL = input.HeroBannerURL
	profile.UpdatedAt = s.now().UTC()

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.storefronts.Invalidate(ctx, previous)
	if previous != username {
		s.storefronts.Invalidate(ctx, username)
		s.logger.InfoContext(ctx, "username changed",
			slog.String("seller_id", sellerID),
			slog.String("from", previous),
			slog.String("to", username),
		)
	}
	return profile, nil
}

// RemoveHeroBanner clears the hero image.
func (s *AdminService) RemoveHeroBanner(ctx context.Context, sellerID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	profile.HeroBannerURL = ""
	profile.UpdatedAt = s.now().UTC()
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.storefronts.Invalidate(ctx, profile.Username)
	return profile, nil
}

// --- Settings ---

// UpdateSettingsInput holds the four theme colours.
type UpdateSettingsInput struct {
	ButtonColor      string `json:"button_color" validate:"required,hexcolor"`
	ButtonHoverColor string `json:"button_hover_color" validate:"required,hexcolor"`
	TextColor        string `json:"text_color" validate:"required,hexcolor"`
	TextHoverColor   string `json:"text_hover_color" validate:"required,hexcolor"`
}

// UpdateSettings saves the theme.
func (s *AdminService) UpdateSettings(ctx context.Context, sellerID string, input *UpdateSettingsInput) (domain.Settings, error) {
	settings := domain.Settings{
		ProfileID:        sellerID,
		ButtonColor:      input.ButtonColor,
		ButtonHoverColor: input.ButtonHoverColor,
		TextColor:        input.TextColor,
		TextHoverColor:   input.TextHoverColor,
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return domain.Settings{}, fmt.Errorf("upsert settings: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return settings, nil
}

// --- Links ---

// LinkInput holds the fields of a link. Omitted order and active flags
// default to "append" and true.
type LinkInput struct {
	Title      string          `json:"title" validate:"required,max=120"`
	Subtitle   string          `json:"subtitle" validate:"max=200"`
	Href       string          `json:"href" validate:"required,max=2048"`
	Type       domain.LinkType `json:"type" validate:"required,oneof=link email whatsapp download video"`
	IconType   domain.IconType `json:"icon_type" validate:"required,oneof=instagram email website download whatsapp"`
	OrderIndex *int            `json:"order_index" validate:"omitempty,gte=0"`
	IsActive   *bool           `json:"is_active"`
}

func (in *LinkInput) check() error {
	if !in.Type.IsValid() {
		return apperrors.InvalidInput(fmt.Sprintf("invalid link type %q", in.Type))
	}
	if !in.IconType.IsValid() {
		return apperrors.InvalidInput(fmt.Sprintf("invalid icon type %q", in.IconType))
	}
	if in.Type == domain.LinkTypeVideo && !video.IsValid(in.Href) {
		return apperrors.InvalidInput("href must be a YouTube or Vimeo URL")
	}
	return nil
}

// CreateLink appends a link to the storefront.
func (s *AdminService) CreateLink(ctx context.Context, sellerID string, input *LinkInput) (*domain.Link, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	order := 0
	if input.OrderIndex != nil {
		order = *input.OrderIndex
	} else {
		existing, err := s.links.List(ctx, sellerID, false)
		if err != nil {
			return nil, fmt.Errorf("list links: %w", err)
		}
		order = len(existing)
	}

	now := s.now().UTC()
	link := &domain.Link{
		ID:         uuid.NewString(),
		ProfileID:  sellerID,
		Title:      strings.TrimSpace(input.Title),
		Subtitle:   strings.TrimSpace(input.Subtitle),
		Href:       strings.TrimSpace(input.Href),
		Type:       input.Type,
		IconType:   input.IconType,
		OrderIndex: order,
		IsActive:   input.IsActive == nil || *input.IsActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return link, nil
}

// UpdateLink replaces a link's fields.
func (s *AdminService) UpdateLink(ctx context.Context, sellerID, linkID string, input *LinkInput) (*domain.Link, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	link, err := s.links.GetByID(ctx, sellerID, linkID)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}

	link.Title = strings.TrimSpace(input.Title)
	link.Subtitle = strings.TrimSpace(input.Subtitle)
	link.Href = strings.TrimSpace(input.Href)
	link.Type = input.Type
	link.IconType = input.IconType
	if input.OrderIndex != nil {
		link.OrderIndex = *input.OrderIndex
	}
	if input.IsActive != nil {
		link.IsActive = *input.IsActive
	}
	link.UpdatedAt = s.now().UTC()

	if err := s.links.Update(ctx, link); err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return link, nil
}

// DeleteLink removes a link.
func (s *AdminService) DeleteLink(ctx context.Context, sellerID, linkID string) error {
	if err := s.links.Delete(ctx, sellerID, linkID); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return nil
}

// --- Products ---

// ProductInput holds the fields of a product. A nil stock means the
// product is never sold out.
type ProductInput struct {
	Name          string             `json:"name" validate:"required,max=120"`
	Description   string             `json:"description" validate:"max=1000"`
	Price         decimal.Decimal    `json:"price"`
	ImageURL      string             `json:"image_url" validate:"omitempty,url"`
	Images        []string           `json:"images" validate:"max=10,dive,url"`
	Size          domain.ProductSize `json:"size" validate:"omitempty,oneof=half full"`
	StockQuantity *int               `json:"stock_quantity" validate:"omitempty,gte=0"`
	OrderIndex    *int               `json:"order_index" validate:"omitempty,gte=0"`
	IsActive      *bool              `json:"is_active"`
}

func (in *ProductInput) check() error {
	if in.Price.IsNegative() {
		return apperrors.InvalidInput("price must be greater than or equal to 0")
	}
	if in.Size == "" {
		in.Size = domain.SizeHalf
	}
	if !in.Size.IsValid() {
		return apperrors.InvalidInput(fmt.Sprintf("invalid size %q", in.Size))
	}
	return nil
}

// CreateProduct appends a product to the catalog.
func (s *AdminService) CreateProduct(ctx context.Context, sellerID string, input *ProductInput) (*domain.Product, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	order := 0
	if input.OrderIndex != nil {
		order = *input.OrderIndex
	} else {
		existing, err := s.products.List(ctx, sellerID, false)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		order = len(existing)
	}

	now := s.now().UTC()
	product := &domain.Product{
		ID:            uuid.NewString(),
		SellerID:      sellerID,
		Name:          strings.TrimSpace(input.Name),
		Description:   strings.TrimSpace(input.Description),
		Price:         input.Price.Round(2),
		ImageURL:      input.ImageURL,
		Images:        input.Images,
		Size:          input.Size,
		StockQuantity: input.StockQuantity,
		IsActive:      input.IsActive == nil || *input.IsActive,
		OrderIndex:    order,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return product, nil
}

// UpdateProduct replaces a product's fields.
func (s *AdminService) UpdateProduct(ctx context.Context, sellerID, productID string, input *ProductInput) (*domain.Product, error) {
	if err := input.check(); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, sellerID, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.Price = input.Price.Round(2)
	product.ImageURL = input.ImageURL
	product.Images = input.Images
	product.Size = input.Size
	product.StockQuantity = input.StockQuantity
	if input.OrderIndex != nil {
		product.OrderIndex = *input.OrderIndex
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return product, nil
}

// DeleteProduct removes a product.
func (s *AdminService) DeleteProduct(ctx context.Context, sellerID, productID string) error {
	if err := s.products.Delete(ctx, sellerID, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateSeller(ctx, sellerID)
	return nil
}
