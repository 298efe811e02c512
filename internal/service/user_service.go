package service

import (
	"context"
	"strings"
	"time"

	"posbackend/internal/auth"
	"posbackend/internal/model"
	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresAt    string `json:"expires_at"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService covers registration and the token lifecycle.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	EnsureAdmin(ctx context.Context, username, email, password string) error
	PruneRefreshTokens(ctx context.Context) (int64, error)
}

type userService struct {
	repo      repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	txManager repository.TransactionManager
	tokens    *auth.TokenManager
	now       func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(
	repo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	txManager repository.TransactionManager,
	tokens *auth.TokenManager,
) UserService {
	return &userService{
		repo:      repo,
		tokenRepo: tokenRepo,
		txManager: txManager,
		tokens:    tokens,
		now:       time.Now,
	}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	return s.createUser(ctx, req, model.RoleCashier)
}

func (s *userService) createUser(ctx context.Context, req RegisterRequest, role string) (*UserResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Username) < 3 {
		return nil, Validation("username must be at least 3 characters")
	}
	if len(req.Password) < 8 || len(req.Password) > 72 {
		return nil, Validation("password must be between 8 and 72 characters")
	}

	// Double check username/email uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, Conflict("username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, Conflict("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fail("hash password", err)
	}

	user := &model.User{
		Username: req.Username,
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		Password: string(hashedPassword),
		Role:     role,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, Conflict("username or email already exists")
		}
		return nil, fail("create user", err)
	}

	return mapToResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, Unauthorized("invalid username or password")
		}
		return nil, fail("login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, Unauthorized("invalid username or password")
	}
	if !user.IsActive {
		return nil, Unauthorized("user account is disabled")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is consumed and a new pair is issued.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, Unauthorized("refresh token is required")
	}

	var tokens *TokenResponse
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		stored, err := s.tokenRepo.FindValid(txCtx, refreshToken, s.now())
		if err != nil {
			if repository.IsNotFound(err) {
				return Unauthorized("invalid or expired refresh token")
			}
			return err
		}
		if err := s.tokenRepo.Delete(txCtx, refreshToken); err != nil {
			return err
		}

		user, err := s.repo.GetByID(txCtx, stored.UserID)
		if err != nil {
			return notFoundOr(err, "user not found")
		}
		if !user.IsActive {
			return Unauthorized("user account is disabled")
		}

		tokens, err = s.issueTokens(txCtx, user)
		return err
	})
	if err != nil {
		return nil, fail("refresh token", err)
	}
	return tokens, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return fail("logout", s.tokenRepo.Delete(ctx, refreshToken))
}

// PruneRefreshTokens deletes refresh tokens past their expiry and reports how many went.
func (s *userService) PruneRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.tokenRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fail("prune refresh tokens", err)
	}
	return n, nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	access, expiresAt, err := s.tokens.IssueAccessToken(user.ID.String(), user.Username, user.Role)
	if err != nil {
		return nil, fail("issue access token", err)
	}
	refresh, refreshExpiresAt, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, fail("issue refresh token", err)
	}
	if err := s.tokenRepo.Create(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: refreshExpiresAt.UTC(),
	}); err != nil {
		return nil, fail("store refresh token", err)
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := parseActor(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fail("get user", notFoundOr(err, "user not found"))
	}
	return mapToResponse(user), nil
}

// EnsureAdmin creates the admin account on first start; an existing username is left untouched.
func (s *userService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !repository.IsNotFound(err) {
		return fail("seed admin", err)
	}

	if _, err := s.createUser(ctx, RegisterRequest{
		Username: username,
		Email:    email,
		FullName: "Administrator",
		Password: password,
	}, model.RoleAdmin); err != nil {
		return err
	}
	logrus.WithField("username", username).Info("Seeded admin user")
	return nil
}
