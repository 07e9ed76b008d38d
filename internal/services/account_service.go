package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/apperr"
	"marketplace/internal/auth"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/utils"
)

const minPasswordLength = 8

// AccountService handles registration, login and profile management
type AccountService struct {
	repo       *repository.Repository
	tokens     *auth.TokenManager
	bcryptCost int
	log        *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(repo *repository.Repository, tokens *auth.TokenManager, bcryptCost int, log *zap.Logger) *AccountService {
	return &AccountService{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// Register creates an account and returns a session token for it
func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Field("email", "a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperr.Field("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("an account with this email already exists")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName, err = utils.GenerateNickname()
		if err != nil {
			return nil, apperr.Unexpected("failed to generate display name", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Unexpected("failed to hash password", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// Login verifies credentials and returns a session token
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	return s.issue(user)
}

// GetMe returns the caller's own account
func (s *AccountService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile applies the non-nil fields of req to the caller's profile
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, apperr.Field("display_name", "display name cannot be empty")
		}
		user.DisplayName = name
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.Location != nil {
		user.Location = strings.TrimSpace(*req.Location)
	}
	if req.AvatarURL != nil {
		if url := strings.TrimSpace(*req.AvatarURL); url != "" {
			user.AvatarURL = &url
		} else {
			user.AvatarURL = nil
		}
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, req models.ChangePasswordRequest) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return apperr.Unauthenticated("current password is incorrect")
	}
	if len(req.NewPassword) < minPasswordLength {
		return apperr.Field("new_password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return apperr.Unexpected("failed to hash password", err)
	}
	user.PasswordHash = string(hash)
	return s.repo.UpdateUser(ctx, user)
}

// PublicProfile returns a user's public profile with their review summary
func (s *AccountService) PublicProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.GetReviewSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{User: user.Public(), Reviews: summary}, nil
}

func (s *AccountService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, apperr.Unexpected("failed to generate token", err)
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
