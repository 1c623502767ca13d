package types

import "time"

type League struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Season    string    `json:"season"`
	Status    string    `json:"status"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Standing is one row of a computed league table.
type Standing struct {
	TeamID       int64  `json:"team_id"`
	TeamName     string `json:"team_name"`
	Played       int    `json:"played"`
	Won          int    `json:"won"`
	Drawn        int    `json:"drawn"`
	Lost         int    `json:"lost"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	GoalDiff     int    `json:"goal_diff"`
	Points       int    `json:"points"`
}
