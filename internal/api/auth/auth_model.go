package auth

import (
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the successful login response body. The token is
// also set as an http-only cookie.
type LoginResponse struct {
	Success     bool            `json:"success"`
	AccessToken string          `json:"access_token"`
	User        *ResolvedPublic `json:"user"`
}

// ResolvedPublic is the client-safe projection of a resolved identity.
// Which profile fields are populated depends on the origin table.
type ResolvedPublic struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Type      types.Origin `json:"type"`
	Role      string       `json:"role"`
	FirstName *string      `json:"first_name,omitempty"`
	LastName  *string      `json:"last_name,omitempty"`
	Position  *string      `json:"position,omitempty"`
	Country   *string      `json:"country,omitempty"`
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ChangePasswordRequest represents the change password request body.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// CheckEmailResponse is the existence check result; boolean only, no detail
// about which table matched.
type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

// CreateUserParams are the fields needed to provision a unified-table
// identity. PasswordHash is nil for OAuth-provisioned accounts.
type CreateUserParams struct {
	Email        string
	PasswordHash *string
	Role         string
	FirstName    *string
	LastName     *string
	AuthProvider *string
}

// Resolved is the outcome of credential resolution: the matched identity
// plus the origin table that produced it.
type Resolved struct {
	Identity *types.Identity
	Origin   types.Origin
}

// Public projects a resolved identity into its client-safe form.
func (r *Resolved) Public() *ResolvedPublic {
	return &ResolvedPublic{
		ID:        r.Identity.ID,
		Email:     r.Identity.Email,
		Type:      r.Origin,
		Role:      r.Identity.Role,
		FirstName: r.Identity.FirstName,
		LastName:  r.Identity.LastName,
		Position:  r.Identity.Position,
		Country:   r.Identity.Country,
	}
}
