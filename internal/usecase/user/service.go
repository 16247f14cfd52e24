package user

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"roomkey/internal/config"
	domainUser "roomkey/internal/domain/user"
	"roomkey/internal/logger"
	appErrors "roomkey/pkg/errors"
	"roomkey/pkg/utils"
)

// Service implements admin user use cases.
type Service struct {
	userRepo domainUser.Repository
	cfg      *config.Config
}

// NewService creates a new user service.
func NewService(userRepo domainUser.Repository, cfg *config.Config) *Service {
	return &Service{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Login checks credentials and issues an admin JWT.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	account, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.Active {
		return nil, domainUser.ErrUserInactive
	}
	if !utils.CheckPassword(account.PasswordHash, req.Password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(account.ID, account.Email, account.Role, account.HotelID, s.cfg.JWT.Secret, s.cfg.JWT.ExpiryHours)
	if err != nil {
		return nil, appErrors.NewAppError("TOKEN_GENERATION_FAILED", "Failed to generate access token", err)
	}

	expiryHours := s.cfg.JWT.ExpiryHours
	if expiryHours <= 0 {
		expiryHours = 24
	}

	logger.Info("User logged in",
		zap.String("user_id", account.ID.String()),
		zap.String("role", account.Role),
	)

	return &LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(time.Duration(expiryHours) * time.Hour),
		User: UserResponse{
			ID:      account.ID,
			Email:   account.Email,
			Role:    account.Role,
			HotelID: account.HotelID,
		},
	}, nil
}

// EnsureBootstrapAdmin creates the initial admin account when the
// configured credentials are present and the account does not exist yet.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domainUser.ErrUserNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	account := &domainUser.User{
		Email:        email,
		PasswordHash: hash,
		Role:         domainUser.RoleAdmin,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, account); err != nil {
		return err
	}

	logger.Info("Bootstrap admin created", zap.String("email", email))
	return nil
}
