package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cutin/internal/domain"
	tokenrepo "cutin/internal/repository/token"
	userrepo "cutin/internal/repository/user"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

type profileRepo interface {
	Upsert(ctx context.Context, m domain.Merchant) (*domain.Merchant, error)
}

// Service handles registration, login and bearer token lookups.
type Service struct {
	users       userrepo.Repository
	profiles    profileRepo
	tokens      *tokenManager
	logger      *zap.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// New creates a Service. profiles receives the empty profile of every new merchant.
func New(users userrepo.Repository, profiles profileRepo, tokens tokenrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:       users,
		profiles:    profiles,
		tokens:      newTokenManager(tokens),
		logger:      logger,
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 6,
	}
}

// RegisterInput captures fields expected by the register endpoint.
type RegisterInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Register creates an account. Merchants also get an empty merchant profile.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email required", domain.ErrInvalidInput)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role must be customer or merchant", domain.ErrInvalidInput)
	}
	password := strings.TrimSpace(in.Password)
	if len(password) < s.passwordMin {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, s.passwordMin)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hashed),
		Role:         in.Role,
	})
	if err != nil {
		return nil, err
	}
	if u.Role == domain.RoleMerchant && s.profiles != nil {
		if _, err := s.profiles.Upsert(ctx, domain.Merchant{ID: u.ID}); err != nil {
			return nil, fmt.Errorf("create merchant profile: %w", err)
		}
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login validates credentials and returns issued tokens plus the user.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, string, error) {
	password = strings.TrimSpace(password)
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(ctx, u.ID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return nil, "", "", err
	}
	refresh, err := s.tokens.Issue(ctx, u.ID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, "", "", err
	}
	return u, access, refresh, nil
}

// LookupByToken returns the user bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	userID, ok := s.tokens.Validate(ctx, token, tokenrepo.KindAccess)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

// Refresh trades a live refresh token for a new access and refresh token.
// The presented refresh token is revoked.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, string, error) {
	userID, ok := s.tokens.Validate(ctx, strings.TrimSpace(refresh), tokenrepo.KindRefresh)
	if !ok {
		return "", "", ErrInvalidToken
	}
	if err := s.tokens.Revoke(ctx, refresh); err != nil {
		return "", "", err
	}
	access, err := s.tokens.Issue(ctx, userID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	next, err := s.tokens.Issue(ctx, userID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, next, nil
}

// Logout revokes every token of the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	n, err := s.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Debug("user logged out", zap.String("user_id", userID), zap.Int64("tokens_revoked", n))
	return nil
}

// SetPushToken stores the device push token used for order notifications.
func (s *Service) SetPushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: push token required", domain.ErrInvalidInput)
	}
	return s.users.SetPushToken(ctx, userID, token)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

// PurgeExpiredTokens deletes every expired access and refresh token.
func (s *Service) PurgeExpiredTokens(ctx context.Context) error {
	n, err := s.tokens.Purge(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired tokens purged", zap.Int64("count", n))
	}
	return nil
}
