package types

import "time"

// Notification kinds published by the domain services.
const (
	NotifyJoinRequestReceived = "join_request.received"
	NotifyJoinRequestDecided  = "join_request.decided"
	NotifyInvitationReceived  = "invitation.received"
	NotifyInvitationDecided   = "invitation.decided"
	NotifyMatchResult         = "match.result"
)

type Notification struct {
	ID        int64                  `json:"id"`
	UserID    int64                  `json:"user_id"`
	Kind      string                 `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
