package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/provider"
	"github.com/pwerioflow/link/internal/repository"
	apperrors "github.com/pwerioflow/link/pkg/errors"
)

// MsgNoPaymentAccount is returned when refreshing onboarding before an
// account exists.
const MsgNoPaymentAccount = "No Stripe account found"

// AccountCountry is where seller accounts are opened.
const AccountCountry = "BR"

// ConnectService onboards sellers onto the payment provider.
type ConnectService struct {
	profiles repository.ProfileRepository
	provider provider.Provider
	siteURL  string
	logger   *slog.Logger
}

// NewConnectService creates a new connect service.
func NewConnectService(profiles repository.ProfileRepository, prov provider.Provider, siteURL string, logger *slog.Logger) *ConnectService {
	return &ConnectService{
		profiles: profiles,
		provider: prov,
		siteURL:  strings.TrimRight(siteURL, "/"),
		logger:   logger,
	}
}

// ConnectStatus mirrors the connected account's capabilities.
type ConnectStatus struct {
	Connected          bool `json:"connected"`
	OnboardingComplete bool `json:"onboarding_complete"`
	ChargesEnabled     bool `json:"charges_enabled"`
	PayoutsEnabled     bool `json:"payouts_enabled"`
}

// Connect opens an account for the seller if none exists and returns an
// onboarding link.
func (s *ConnectService) Connect(ctx context.Context, sellerID string) (string, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}

	accountID := profile.Payments.AccountID
	if accountID == "" {
		acct, err := s.provider.CreateAccount(ctx, &provider.AccountInput{
			Email:        profile.Email,
			BusinessName: profile.BusinessName,
			Country:      AccountCountry,
		})
		if err != nil {
			return "", fmt.Errorf("create payment account: %w", err)
		}
		accountID = acct.ID

		if err := s.profiles.SetPaymentAccount(ctx, sellerID, paymentsFromAccount(acct)); err != nil {
			return "", fmt.Errorf("save payment account: %w", err)
		}
		s.logger.InfoContext(ctx, "payment account created",
			slog.String("seller_id", sellerID),
			slog.String("account_id", accountID),
		)
	}

	return s.onboardingLink(ctx, accountID)
}

// Refresh issues a new onboarding link for an existing account.
func (s *ConnectService) Refresh(ctx context.Context, sellerID string) (string, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return "", fmt.Errorf("get profile: %w", err)
	}
	if profile.Payments.AccountID == "" {
		return "", apperrors.NotFound("payment account", sellerID).WithMessage(MsgNoPaymentAccount)
	}
	return s.onboardingLink(ctx, profile.Payments.AccountID)
}

// Status fetches the account's capabilities and stores them on the profile.
func (s *ConnectService) Status(ctx context.Context, sellerID string) (*ConnectStatus, error) {
	profile, err := s.profiles.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.Payments.AccountID == "" {
		return &ConnectStatus{}, nil
	}

	acct, err := s.provider.GetAccount(ctx, profile.Payments.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get payment account: %w", err)
	}
	if err := s.profiles.SetPaymentAccount(ctx, sellerID, paymentsFromAccount(acct)); err != nil {
		return nil, fmt.Errorf("sync payment account: %w", err)
	}

	return &ConnectStatus{
		Connected:          true,
		OnboardingComplete: acct.DetailsSubmitted,
		ChargesEnabled:     acct.ChargesEnabled,
		PayoutsEnabled:     acct.PayoutsEnabled,
	}, nil
}

func (s *ConnectService) onboardingLink(ctx context.Context, accountID string) (string, error) {
	link, err := s.provider.CreateAccountLink(ctx, accountID,
		s.siteURL+"/admin?stripe_refresh=true",
		s.siteURL+"/admin?stripe_success=true",
	)
	if err != nil {
		return "", fmt.Errorf("create onboarding link: %w", err)
	}
	return link, nil
}

func paymentsFromAccount(acct *provider.Account) domain.Payments {
	return domain.Payments{
		AccountID:          acct.ID,
		OnboardingComplete: acct.DetailsSubmitted,
		ChargesEnabled:     acct.ChargesEnabled,
		PayoutsEnabled:     acct.PayoutsEnabled,
	}
}
