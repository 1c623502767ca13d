package types

import "time"

// Origin identifies which backing table produced a matched identity during
// credential resolution. Only OriginUser is forward-looking; the other three
// are deprecated legacy tables kept for not-yet-migrated accounts.
type Origin string

const (
	OriginUser    Origin = "user"
	OriginAthlete Origin = "athlete"
	OriginManager Origin = "manager"
	OriginTeam    Origin = "team"
)

// Account status values stored on the users table.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Identity is an authenticable principal, regardless of which table stores
// it. PasswordHash is nil for accounts provisioned via external OAuth.
type Identity struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status,omitempty"`
	FirstName    *string   `json:"first_name,omitempty"`
	LastName     *string   `json:"last_name,omitempty"`
	Position     *string   `json:"position,omitempty"`
	Country      *string   `json:"country,omitempty"`
	AuthProvider *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
}

// Principal is the normalized, request-scoped representation of the
// currently authenticated identity, attached by the session middleware.
// Roles is the effective role set and is never empty.
type Principal struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
	Role      string   `json:"role"`
	Origin    Origin   `json:"-"`
}

// HasRole reports whether the principal's effective role set contains any
// of the given roles.
func (p *Principal) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
