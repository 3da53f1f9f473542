package models

// RoleUser is the default role assigned on signup. RoleAdmin unlocks the admin routes.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account in the credential store
type User struct {
	ID           int      `json:"id"`
	Email        string   `json:"email"`
	Name         string   `json:"name"`
	PasswordHash string   `json:"-"` // Never serialize password hash
	Roles        []string `json:"roles"`
	MfaEnabled   bool     `json:"-"`
	MfaSecret    string   `json:"-"` // base32 TOTP secret, present only between setup and enable/disable
}

// HasRole reports whether the user's role set contains role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Otp      string `json:"otp"`
}

// AuthResponse is returned by signup and login on success
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
