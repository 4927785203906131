package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/match-score/models"
	"github.com/Dosada05/match-score/repositories"
	"github.com/Dosada05/match-score/utils"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	GetUser(ctx context.Context, userID int) (*models.User, error)
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	userRepo   repositories.UserRepository
	adminEmail string
	logger     *slog.Logger
}

// NewAuthService creates the service. A user registering with adminEmail
// becomes an administrator; an empty adminEmail disables that.
func NewAuthService(userRepo repositories.UserRepository, adminEmail string, logger *slog.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		logger:     logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	firstName := strings.TrimSpace(input.FirstName)

	if firstName == "" || username == "" {
		return nil, fmt.Errorf("%w: first name and username are required", ErrValidationFailed)
	}
	if !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     strings.TrimSpace(input.LastName),
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		IsAdmin:      s.adminEmail != "" && email == s.adminEmail,
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		if mapped := mapUserRepoError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", slog.Int("user_id", user.ID), slog.Bool("is_admin", user.IsAdmin))
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, nil, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	user.PasswordHash = ""
	return user, nil
}
