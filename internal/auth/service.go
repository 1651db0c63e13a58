// Package auth registers and authenticates users and manages their tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUserExists         = "User already exists with this email"
	msgAccountDisabled    = "Account is deactivated"
)

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Service struct {
	users  store.UserRepository
	carts  store.CartRepository
	tokens store.RefreshTokenRepository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repos store.Repositories, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		users:  repos.Users,
		carts:  repos.Carts,
		tokens: repos.RefreshTokens,
		cfg:    cfg,
		logger: logger.Named("auth"),
		now:    time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is returned by every flow that signs a user in.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         models.User
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput, userAgent string) (Session, error) {
	email := NormalizeEmail(in.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Session{}, apperror.Conflict(msgUserExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, apperror.Internal("db error", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, apperror.Internal("password hash failed", err)
	}

	now := s.now()
	user := models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
		IsActive:     true,
		Addresses:    []models.Address{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Session{}, apperror.Conflict(msgUserExists)
		}
		return Session{}, apperror.Internal("db error", err)
	}

	if _, err := s.carts.Get(ctx, user.ID); err != nil {
		s.logger.Warn("cart creation failed", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return s.issueSession(ctx, user, userAgent)
}

func (s *Service) Login(ctx context.Context, email, password, userAgent string) (Session, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperror.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return Session{}, apperror.Internal("db error", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login rejected", zap.String("user_id", user.ID.Hex()))
		return Session{}, apperror.Unauthorized(msgInvalidCredentials)
	}
	if !user.IsActive {
		return Session{}, apperror.Unauthorized(msgAccountDisabled)
	}

	s.logger.Info("user login succeeded", zap.String("user_id", user.ID.Hex()))
	return s.issueSession(ctx, user, userAgent)
}

// Refresh rotates a refresh token: the presented one is revoked and linked to
// its replacement.
func (s *Service) Refresh(ctx context.Context, plain, userAgent string) (Session, error) {
	token, err := s.tokens.FindActiveByHash(ctx, hashToken(strings.TrimSpace(plain)))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperror.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return Session{}, apperror.Internal("db error", err)
	}

	if token.Expired(s.now()) {
		_ = s.tokens.Revoke(ctx, token.ID, nil)
		return Session{}, apperror.Unauthorized("refresh token expired")
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		return Session{}, apperror.Unauthorized("user not found")
	}
	if !user.IsActive {
		return Session{}, apperror.Unauthorized(msgAccountDisabled)
	}

	session, newID, err := s.newSession(ctx, user, userAgent)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.Revoke(ctx, token.ID, &newID); err != nil {
		s.logger.Warn("revoke rotated token failed", zap.Error(err))
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, plain string) error {
	revoked, err := s.tokens.RevokeByHash(ctx, hashToken(strings.TrimSpace(plain)))
	if err != nil {
		return apperror.Internal("db error", err)
	}
	if !revoked {
		return apperror.Unauthorized("invalid refresh token")
	}
	return nil
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, raw string) (models.User, error) {
	claims, err := ParseAccessToken(raw, []byte(s.cfg.Secret))
	if errors.Is(err, ErrTokenExpired) {
		return models.User{}, apperror.Unauthorized("Token expired")
	}
	if err != nil {
		return models.User{}, apperror.Unauthorized("Not authorized, token failed")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperror.Unauthorized("User not found")
	}
	if err != nil {
		return models.User{}, apperror.Internal("db error", err)
	}
	if !user.IsActive {
		return models.User{}, apperror.Unauthorized(msgAccountDisabled)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator, or promotes the account if
// it already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			if _, err := s.users.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return err
			}
			s.logger.Info("bootstrap admin promoted", zap.String("user_id", existing.ID.Hex()))
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := s.now()
	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
		Addresses:    []models.Address{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("user_id", admin.ID.Hex()))
	return nil
}

func (s *Service) issueSession(ctx context.Context, user models.User, userAgent string) (Session, error) {
	session, _, err := s.newSession(ctx, user, userAgent)
	return session, err
}

func (s *Service) newSession(ctx context.Context, user models.User, userAgent string) (Session, primitive.ObjectID, error) {
	now := s.now()
	access, err := issueAccessToken(user.ID, user.Role, []byte(s.cfg.Secret), s.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, primitive.NilObjectID, apperror.Internal("token generation failed", err)
	}

	plain, err := generateRefreshString()
	if err != nil {
		return Session{}, primitive.NilObjectID, apperror.Internal("token generation failed", err)
	}
	refresh := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(plain),
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, &refresh); err != nil {
		return Session{}, primitive.NilObjectID, apperror.Internal("db error", err)
	}

	return Session{
		AccessToken:  access,
		RefreshToken: plain,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         user,
	}, refresh.ID, nil
}
