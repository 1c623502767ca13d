package types

import "time"

// Match statuses.
const (
	MatchScheduled = "scheduled"
	MatchFinished  = "finished"
	MatchCancelled = "cancelled"
)

type Match struct {
	ID         int64     `json:"id"`
	LeagueID   *int64    `json:"league_id,omitempty"`
	HomeTeamID int64     `json:"home_team_id"`
	AwayTeamID int64     `json:"away_team_id"`
	KickoffAt  time.Time `json:"kickoff_at"`
	Venue      *string   `json:"venue,omitempty"`
	Status     string    `json:"status"`
	HomeScore  *int      `json:"home_score,omitempty"`
	AwayScore  *int      `json:"away_score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Finished reports whether the match has a recorded result.
func (m *Match) Finished() bool {
	return m.Status == MatchFinished && m.HomeScore != nil && m.AwayScore != nil
}
