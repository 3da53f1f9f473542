package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/auth"
	"github.com/threatdash/backend/internal/models"
)

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user; its ID is set on success.
	//
	// If the email is already registered, an error wrapping apperrors.ErrConflict
	// will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email.
	//
	// If user with such email does not exist, an error wrapping
	// apperrors.ErrNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// authService implements signup, login and token verification
type authService struct {
	userRepo       UserRepository
	tokenGenerator *auth.TokenGenerator
	logger         *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo UserRepository, tokenGenerator *auth.TokenGenerator, logger *zap.Logger) *authService {
	return &authService{
		userRepo:       userRepo,
		tokenGenerator: tokenGenerator,
		logger:         logger,
	}
}

const minPasswordLength = 6

// Signup creates a new user account with the default role and returns the
// created user together with a freshly signed session token
func (s *authService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, string, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least 6 chars", apperrors.ErrValidation)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, "", fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(passwordHash),
		Roles:        []string{models.RoleUser},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokenGenerator.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", zap.Error(err))
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// Login authenticates a user, enforcing the second factor when enabled.
// A matched password with MFA enabled and no OTP yields apperrors.ErrMFARequired,
// distinct from the generic credential failure.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", apperrors.ErrAuth)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid credentials", apperrors.ErrAuth)
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", apperrors.ErrAuth)
	}

	if user.MfaEnabled {
		if req.Otp == "" {
			return nil, "", apperrors.ErrMFARequired
		}
		if !verifyTOTP(user.MfaSecret, req.Otp) {
			return nil, "", fmt.Errorf("%w: invalid OTP", apperrors.ErrAuth)
		}
	}

	// Claims are a snapshot of the current email and roles
	token, err := s.tokenGenerator.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate token", zap.Error(err))
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, token, nil
}

// VerifyToken validates a session token and returns its claims
func (s *authService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokenGenerator.Validate(token)
}

// verifyTOTP checks a time-based one-time password against a base32 secret,
// allowing one time-step of clock drift on either side
func verifyTOTP(secret, code string) bool {
	if secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
