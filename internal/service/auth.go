package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pwerioflow/link/internal/auth"
	"github.com/pwerioflow/link/internal/domain"
	"github.com/pwerioflow/link/internal/repository"
	apperrors "github.com/pwerioflow/link/pkg/errors"
	"github.com/pwerioflow/link/pkg/slug"
)

const msgBadCredentials = "invalid email or password"

// TokenIssuer signs admin tokens.
type TokenIssuer interface {
	GenerateToken(sellerID, username string) (string, time.Time, error)
}

// AuthService registers sellers and signs them in.
type AuthService struct {
	profiles   repository.ProfileRepository
	tokens     TokenIssuer
	bcryptCost int
	trialDays  int
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(profiles repository.ProfileRepository, tokens TokenIssuer, bcryptCost, trialDays int, logger *slog.Logger) *AuthService {
	return &AuthService{
		profiles:   profiles,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		trialDays:  trialDays,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterInput holds the parameters for creating a seller.
type RegisterInput struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Username     string `json:"username" validate:"omitempty,max=60"`
	BusinessName string `json:"business_name" validate:"required,min=2,max=120"`
}

// LoginInput holds sign-in credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned on successful registration or login.
type AuthResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

// Register creates a seller with the default theme, an empty QR counter and
// a trial subscription. The username falls back to the business name.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResult, error) {
	raw := input.Username
	if strings.TrimSpace(raw) == "" {
		raw = input.BusinessName
	}
	username := slug.Username(raw)
	if len(username) < 3 {
		return nil, apperrors.InvalidInput("username must have at least 3 letters or digits")
	}
	if domain.IsReservedUsername(username) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("username %q is reserved", username))
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	profile := &domain.Profile{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Username:     username,
		BusinessName: strings.TrimSpace(input.BusinessName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	reg := repository.Registration{
		Profile:      profile,
		Settings:     domain.DefaultSettings(profile.ID),
		Subscription: domain.NewTrial(profile.ID, now, s.trialDays),
	}
	if err := s.profiles.Register(ctx, reg); err != nil {
		return nil, fmt.Errorf("register seller: %w", err)
	}

	s.logger.InfoContext(ctx, "seller registered",
		slog.String("seller_id", profile.ID),
		slog.String("username", profile.Username),
	)

	return s.issue(profile)
}

// Login checks credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResult, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("get seller by email: %w", err)
	}

	if err := auth.CheckPassword(profile.PasswordHash, input.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.WarnContext(ctx, "failed login", slog.String("seller_id", profile.ID))
			return nil, apperrors.Unauthorized(msgBadCredentials)
		}
		return nil, err
	}

	return s.issue(profile)
}

func (s *AuthService) issue(profile *domain.Profile) (*AuthResult, error) {
	token, exp, err := s.tokens.GenerateToken(profile.ID, profile.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: exp, Profile: profile}, nil
}
