package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopswift/storefront/services/common/auth"
	apperrors "github.com/shopswift/storefront/services/common/errors"
	"github.com/shopswift/storefront/services/common/identity"
	"github.com/shopswift/storefront/services/common/users"
	"github.com/shopswift/storefront/services/user-service/models"
)

const (
	msgUserExists         = "User already exists"
	msgEmailTaken         = "Email already in use"
	msgInvalidCredentials = "Invalid email or password"
	msgUserNotFound       = "User not found"
	msgCannotDeleteAdmin  = "Cannot delete admin user"
	msgNotAdmin           = "Not authorized as an admin"
)

type TokenIssuer interface {
	Issue(userID string) (string, *auth.Claims, error)
}

// Revoker invalidates a credential before it expires.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Session is an authenticated account plus the credential issued for it.
type Session struct {
	User   users.User
	Token  string
	Claims *auth.Claims
}

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*Session, error)
	Login(ctx context.Context, req models.LoginRequest) (*Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error

	GetProfile(ctx context.Context, actor identity.Identity) (*users.User, error)
	UpdateProfile(ctx context.Context, actor identity.Identity, req models.UpdateProfileRequest) (*users.User, error)

	ListUsers(ctx context.Context, actor identity.Identity) ([]users.User, error)
	GetUser(ctx context.Context, actor identity.Identity, id string) (*users.User, error)
	UpdateUser(ctx context.Context, actor identity.Identity, id string, req models.AdminUpdateRequest) (*users.User, error)
	DeleteUser(ctx context.Context, actor identity.Identity, id string) error
}

type userService struct {
	repo    users.Repository
	tokens  TokenIssuer
	revoker Revoker
	metrics *AccountMetrics
	logger  *zap.Logger
	cost    int
}

type Option func(*userService)

// WithRevoker makes Logout revoke the presented credential.
func WithRevoker(r Revoker) Option {
	return func(s *userService) { s.revoker = r }
}

func WithMetrics(m *AccountMetrics) Option {
	return func(s *userService) { s.metrics = m }
}

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *userService) { s.cost = cost }
}

func NewUserService(repo users.Repository, tokens TokenIssuer, logger *zap.Logger, opts ...Option) UserService {
	s := &userService{repo: repo, tokens: tokens, logger: logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.Validation(msgUserExists)
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, apperrors.Store("Failed to create user", err)
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &users.User{
		Username: strings.TrimSpace(req.Username),
		Email:    email,
		Password: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, apperrors.Validation(msgUserExists)
		}
		return nil, apperrors.Store("Failed to create user", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	s.metrics.registered(ctx)
	return s.session(user)
}

// Login never reveals whether the email or the password was wrong.
func (s *userService) Login(ctx context.Context, req models.LoginRequest) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return nil, apperrors.Store("Failed to sign in", err)
		}
		s.metrics.loginFailed(ctx)
		return nil, apperrors.Unauthenticated(msgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.metrics.loginFailed(ctx)
		return nil, apperrors.Unauthenticated(msgInvalidCredentials)
	}
	return s.session(user)
}

// Logout revokes the credential when a revoker is configured. Without one the
// cookie is simply cleared by the caller.
func (s *userService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil || claims == nil || claims.TokenID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return apperrors.Store("Failed to sign out", err)
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, actor identity.Identity) (*users.User, error) {
	return s.find(ctx, actor.ID)
}

func (s *userService) UpdateProfile(ctx context.Context, actor identity.Identity, req models.UpdateProfileRequest) (*users.User, error) {
	user, err := s.find(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(req.Username); v != "" {
		user.Username = v
	}
	if v := normalizeEmail(req.Email); v != "" {
		user.Email = v
	}
	user.Password = ""
	if req.Password != "" {
		if user.Password, err = s.hash(req.Password); err != nil {
			return nil, err
		}
	}

	if err := s.update(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, actor identity.Identity) ([]users.User, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden(msgNotAdmin)
	}
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Store("Failed to fetch users", err)
	}
	if all == nil {
		all = []users.User{}
	}
	return all, nil
}

func (s *userService) GetUser(ctx context.Context, actor identity.Identity, id string) (*users.User, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden(msgNotAdmin)
	}
	return s.find(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, actor identity.Identity, id string, req models.AdminUpdateRequest) (*users.User, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Forbidden(msgNotAdmin)
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(req.Username); v != "" {
		user.Username = v
	}
	if v := normalizeEmail(req.Email); v != "" {
		user.Email = v
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}
	user.Password = ""

	if err := s.update(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user updated by admin", zap.String("user_id", user.ID), zap.String("admin_id", actor.ID), zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// DeleteUser refuses to remove admins. Orders owned by the user are kept.
func (s *userService) DeleteUser(ctx context.Context, actor identity.Identity, id string) error {
	if !actor.IsAdmin {
		return apperrors.Forbidden(msgNotAdmin)
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return apperrors.Validation(msgCannotDeleteAdmin)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return apperrors.NotFound(msgUserNotFound)
		}
		return apperrors.Store("Failed to delete user", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("admin_id", actor.ID))
	return nil
}

func (s *userService) find(ctx context.Context, id string) (*users.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, apperrors.NotFound(msgUserNotFound)
		}
		return nil, apperrors.Store("Failed to fetch user", err)
	}
	return user, nil
}

func (s *userService) update(ctx context.Context, user *users.User) error {
	err := s.repo.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, users.ErrNotFound):
		return apperrors.NotFound(msgUserNotFound)
	case errors.Is(err, users.ErrDuplicateEmail):
		return apperrors.Validation(msgEmailTaken)
	default:
		return apperrors.Store("Failed to update user", err)
	}
}

func (s *userService) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperrors.Internal("Failed to hash password", err)
	}
	return string(b), nil
}

func (s *userService) session(user *users.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}
	u := *user
	u.Password = ""
	return &Session{User: u, Token: token, Claims: claims}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
