package types

import (
	"time"

	"github.com/google/uuid"
)

// Team membership roles.
const (
	TeamRoleManager          = "manager"
	TeamRoleAssistantManager = "assistant_manager"
	TeamRoleAthlete          = "athlete"
)

// Join request / invitation statuses.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDeclined = "declined"
	InviteAccepted  = "accepted"
	InviteDeclined  = "declined"
	InviteExpired   = "expired"
)

type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TeamMember struct {
	TeamID    int64     `json:"team_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	Email     string    `json:"email"`
	JoinedAt  time.Time `json:"joined_at"`
}

type JoinRequest struct {
	ID        int64      `json:"id"`
	TeamID    int64      `json:"team_id"`
	UserID    int64      `json:"user_id"`
	Status    string     `json:"status"`
	Message   *string    `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// Invitation carries an opaque uuid token that the invitee presents to
// accept or decline; the token is the only handle exposed outside the team.
type Invitation struct {
	ID        int64     `json:"id"`
	Token     uuid.UUID `json:"token"`
	TeamID    int64     `json:"team_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
