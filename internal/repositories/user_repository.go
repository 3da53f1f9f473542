package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/apperrors"
	"github.com/threatdash/backend/internal/models"
)

// userRepository implements the user store over MySQL
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, roles, mfa_enabled)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, user.Email, user.Name, user.PasswordHash, joinRoles(user.Roles), user.MfaEnabled)
	if err != nil {
		// MySQL error 1062: duplicate entry for the unique email index
		if strings.Contains(err.Error(), "1062") || strings.Contains(err.Error(), "Duplicate entry") {
			return fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, name, password_hash, roles, mfa_enabled, mfa_secret
		FROM users
		WHERE email = ?
		LIMIT 1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, userID int) (*models.User, error) {
	query := `
		SELECT id, email, name, password_hash, roles, mfa_enabled, mfa_secret
		FROM users
		WHERE id = ?
		LIMIT 1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT * FROM users WHERE email = ?)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// UpdateMfa stores the MFA state for a user. An empty secret clears the column.
func (r *userRepository) UpdateMfa(ctx context.Context, userID int, enabled bool, secret string) error {
	query := `UPDATE users SET mfa_enabled = ?, mfa_secret = ? WHERE id = ?`

	var secretValue any
	if secret != "" {
		secretValue = secret
	}

	_, err := r.db.ExecContext(ctx, query, enabled, secretValue, userID)
	if err != nil {
		r.logger.Error("failed to update mfa state", zap.Error(err), zap.Int("userId", userID))
		return fmt.Errorf("failed to update mfa state: %w", err)
	}

	return nil
}

// UpdateRoles replaces a user's role set
func (r *userRepository) UpdateRoles(ctx context.Context, userID int, roles []string) error {
	query := `UPDATE users SET roles = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, joinRoles(roles), userID)
	if err != nil {
		r.logger.Error("failed to update roles", zap.Error(err), zap.Int("userId", userID))
		return fmt.Errorf("failed to update roles: %w", err)
	}

	return nil
}

// UpdatePasswordHash updates the password hash for a user
func (r *userRepository) UpdatePasswordHash(ctx context.Context, userID int, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		r.logger.Error("failed to update password hash", zap.Error(err), zap.Int("userId", userID))
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	return nil
}

// scanUser reads one user row, normalizing the roles CSV and nullable secret
func (r *userRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var roles string
	var secret sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&roles,
		&user.MfaEnabled,
		&secret,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to scan user", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Roles = splitRoles(roles)
	user.MfaSecret = secret.String
	return user, nil
}

// joinRoles serializes a role set to the comma-separated storage form
func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return models.RoleUser
	}
	return strings.Join(roles, ",")
}

// splitRoles parses the comma-separated storage form back to a role set
func splitRoles(s string) []string {
	if s == "" {
		return []string{models.RoleUser}
	}
	parts := strings.Split(s, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}
