package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// MfaUserRepository is the interface that wraps methods for User table data
// access needed by the MFA flows
type MfaUserRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, an error wrapping
	// apperrors.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method UpdateMfa stores the MFA state for a user.
	//
	// "enabled" and "secret" replace the stored values; an empty secret clears
	// the column.
	UpdateMfa(ctx context.Context, userID int, enabled bool, secret string) error
}

// MfaSetupResponse carries everything the client needs to enroll an authenticator
type MfaSetupResponse struct {
	OtpauthURL string `json:"otpauthUrl"`
	QrDataURL  string `json:"qrDataUrl"`
	Base32     string `json:"base32"`
}

const mfaIssuer = "Threat Intel Dashboard"

// mfaService implements the TOTP enrollment flows
type mfaService struct {
	userRepo MfaUserRepository
	logger   *zap.Logger
}

// NewMfaService creates a new MFA service
func NewMfaService(userRepo MfaUserRepository, logger *zap.Logger) *mfaService {
	return &mfaService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Status reports whether MFA is enabled for the user
func (s *mfaService) Status(ctx context.Context, userID int) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.MfaEnabled, nil
}

// Setup generates a fresh secret and enrollment QR for the user. MFA stays
// disabled until Enable verifies a code; calling Setup again overwrites any
// prior un-enabled secret.
func (s *mfaService) Setup(ctx context.Context, userID int) (*MfaSetupResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: user.Email,
		SecretSize:  20,
	})
	if err != nil {
		s.logger.Error("failed to generate totp secret", zap.Error(err))
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.userRepo.UpdateMfa(ctx, userID, false, key.Secret()); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("failed to encode enrollment QR", zap.Error(err))
		return nil, fmt.Errorf("failed to encode enrollment QR: %w", err)
	}

	return &MfaSetupResponse{
		OtpauthURL: key.URL(),
		QrDataURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Base32:     key.Secret(),
	}, nil
}

// Enable verifies the OTP against the stored secret and flips MFA on
func (s *mfaService) Enable(ctx context.Context, userID int, otpCode string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.MfaSecret == "" {
		return fmt.Errorf("%w: run setup first", apperrors.ErrValidation)
	}

	if !verifyTOTP(user.MfaSecret, otpCode) {
		return fmt.Errorf("%w: invalid OTP", apperrors.ErrAuth)
	}

	return s.userRepo.UpdateMfa(ctx, userID, true, user.MfaSecret)
}

// Disable turns MFA off. When a secret is on file the caller must prove
// possession with a valid OTP; with no secret disabling is a no-op success.
// The secret is cleared either way.
func (s *mfaService) Disable(ctx context.Context, userID int, otpCode string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.MfaSecret != "" && !verifyTOTP(user.MfaSecret, otpCode) {
		return fmt.Errorf("%w: invalid OTP", apperrors.ErrAuth)
	}

	return s.userRepo.UpdateMfa(ctx, userID, false, "")
}
