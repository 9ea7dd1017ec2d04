package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pwerioflow/link/internal/cart"
	"github.com/pwerioflow/link/internal/checkout"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/event"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	pkgkafka "github.com/pwerioflow/link/pkg/kafka"
)

type storefrontFixture struct {
	profiles  *mockProfileRepository
	settings  *mockSettingsRepository
	links     *mockLinkRepository
	products  *mockProductRepository
	qr        *mockQRRepository
	cache     *mockStorefrontCache
	publisher *mockPublisher
	sessions  *cart.Sessions
	svc       *StorefrontService
}

func newStorefrontFixture(withCache bool) *storefrontFixture {
	f := &storefrontFixture{
		profiles:  new(mockProfileRepository),
		settings:  new(mockSettingsRepository),
		links:     new(mockLinkRepository),
		products:  new(mockProductRepository),
		qr:        new(mockQRRepository),
		cache:     new(mockStorefrontCache),
		publisher: new(mockPublisher),
		sessions:  cart.NewSessions(time.Hour),
	}
	var cache StorefrontCache
	if withCache {
		cache = f.cache
	}
	logger := newTestLogger()
	f.svc = NewStorefrontService(f.profiles, f.settings, f.links, f.products, f.qr, cache,
		f.sessions, event.NewProducer(f.publisher, logger), logger)
	f.svc.now = fixedNow
	return f
}

func (f *storefrontFixture) expectLoad(ctx context.Context) {
	stock := 3
	f.profiles.On("GetByUsername", ctx, "acme").Return(&domain.Profile{ID: "seller-1", Username: "acme", BusinessName: "Acme"}, nil)
	f.settings.On("Get", ctx, "seller-1").Return(domain.Settings{ProfileID: "seller-1", ButtonColor: "#000000"}, nil)
	f.links.On("List", ctx, "seller-1", true).Return([]domain.Link{
		{ID: "l1", Title: "Mail", Href: "hi@acme.example", Type: domain.LinkTypeEmail, IconType: domain.IconEmail, IsActive: true},
		{ID: "l2", Title: "Video", Href: "https://youtu.be/dQw4w9WgXcQ", Type: domain.LinkTypeVideo, IconType: domain.IconWebsite, IsActive: true},
	}, nil)
	f.products.On("List", ctx, "seller-1", true).Return([]domain.Product{
		{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("19.9"), ImageURL: "https://img.example/1.png", StockQuantity: &stock, IsActive: true},
		{ID: "p2", Name: "Poster", Price: decimal.RequireFromString("5"), StockQuantity: intPtr(0), IsActive: true},
	}, nil)
}

func TestStorefrontPage_RendersViews(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.expectLoad(ctx)

	page, err := f.svc.Page(ctx, "ACME", url.Values{"checkout": {"success"}})

	require.NoError(t, err)
	assert.Equal(t, "acme", page.Profile.Username)
	assert.Equal(t, "#000000", page.Theme.ButtonColor)
	assert.Equal(t, domain.DefaultTextColor, page.Theme.TextColor)
	assert.Equal(t, checkout.BannerSuccess, page.Banner)

	require.Len(t, page.Links, 2)
	assert.Equal(t, "mailto:hi@acme.example", page.Links[0].Href)
	assert.False(t, page.Links[0].OpensInNewTab)
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ?rel=0&modestbranding=1", page.Links[1].EmbedURL)

	require.Len(t, page.Products, 2)
	assert.Equal(t, "R$ 19.90", page.Products[0].Price)
	assert.True(t, page.Products[0].LowStock)
	assert.True(t, page.Products[0].CanAddToCart)
	assert.Equal(t, []string{"https://img.example/1.png"}, page.Products[0].Images)
	assert.False(t, page.Products[1].CanAddToCart)

	assert.Nil(t, page.CartButton)
	store, ok := f.sessions.Get(page.CartID)
	require.True(t, ok)
	assert.Equal(t, "seller-1", store.SellerID())
	f.qr.AssertNotCalled(t, "RecordScan", mock.Anything, mock.Anything, mock.Anything)
}

func TestStorefrontPage_EveryVisitGetsFreshCart(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.expectLoad(ctx)

	first, err := f.svc.Page(ctx, "acme", url.Values{})
	require.NoError(t, err)
	second, err := f.svc.Page(ctx, "acme", url.Values{})
	require.NoError(t, err)

	assert.NotEqual(t, first.CartID, second.CartID)
	assert.Equal(t, 2, f.sessions.Len())
}

func TestStorefrontPage_QRVisitIsCounted(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.expectLoad(ctx)
	f.qr.On("RecordScan", ctx, "seller-1", fixedNow()).Return(nil)
	f.publisher.On("Publish", ctx, event.TopicQRScanned, mock.AnythingOfType("*kafka.Event")).Return(nil)

	_, err := f.svc.Page(ctx, "acme", url.Values{SourceParam: {SourceQR}})

	require.NoError(t, err)
	f.qr.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestStorefrontPage_QRFailureDoesNotBlock(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.expectLoad(ctx)
	f.qr.On("RecordScan", ctx, "seller-1", fixedNow()).Return(errors.New("db down"))

	page, err := f.svc.Page(ctx, "acme", url.Values{SourceParam: {SourceQR}})

	require.NoError(t, err)
	assert.NotEmpty(t, page.CartID)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestStorefrontPage_UnknownUsername(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.profiles.On("GetByUsername", ctx, "ghost").Return(nil, apperrors.NotFound("profile", "ghost"))

	_, err := f.svc.Page(ctx, "ghost", url.Values{})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
	assert.Equal(t, 0, f.sessions.Len())
}

func TestStorefrontGet_UsesCache(t *testing.T) {
	f := newStorefrontFixture(true)
	ctx := context.Background()
	cached := &domain.Storefront{Profile: domain.Profile{ID: "seller-1", Username: "acme"}}
	f.cache.On("Get", ctx, "acme", mock.Anything).Return(cached, nil)

	sf, err := f.svc.Get(ctx, " Acme ")

	require.NoError(t, err)
	assert.Same(t, cached, sf)
	f.profiles.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
}

func TestStorefrontInvalidate_ErrorsAreSwallowed(t *testing.T) {
	f := newStorefrontFixture(true)
	ctx := context.Background()
	f.cache.On("Invalidate", ctx, "acme").Return(errors.New("redis down"))

	assert.NotPanics(t, func() { f.svc.Invalidate(ctx, "Acme") })
	f.cache.AssertExpectations(t)
}

func TestQRScannedEventPayload(t *testing.T) {
	f := newStorefrontFixture(false)
	ctx := context.Background()
	f.expectLoad(ctx)
	f.qr.On("RecordScan", ctx, "seller-1", fixedNow()).Return(nil)

	var published *pkgkafka.Event
	f.publisher.On("Publish", ctx, event.TopicQRScanned, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).(*pkgkafka.Event) }).
		Return(nil)

	_, err := f.svc.Page(ctx, "acme", url.Values{SourceParam: {SourceQR}})
	require.NoError(t, err)

	require.NotNil(t, published)
	var data event.QRScannedData
	require.NoError(t, published.UnmarshalData(&data))
	assert.Equal(t, "acme", data.Username)
	assert.True(t, data.ScannedAt.Equal(fixedNow()))
}
