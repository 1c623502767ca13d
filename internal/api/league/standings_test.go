package league

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/matchpoint/internal/types"
)

func team(id int64, name string) *types.Team {
	return &types.Team{ID: id, Name: name}
}

func finished(home, away int64, hs, as int) *types.Match {
	return &types.Match{
		HomeTeamID: home,
		AwayTeamID: away,
		KickoffAt:  time.Now(),
		Status:     types.MatchFinished,
		HomeScore:  &hs,
		AwayScore:  &as,
	}
}

func TestComputeStandings(t *testing.T) {
	teams := []*types.Team{
		team(1, "Alpha"), team(2, "Beta"), team(3, "Gamma"),
	}
	matches := []*types.Match{
		finished(1, 2, 2, 0), // Alpha beats Beta
		finished(2, 3, 1, 1), // draw
		finished(3, 1, 0, 3), // Alpha beats Gamma away
	}

	table := ComputeStandings(teams, matches)
	require.Len(t, table, 3)

	assert.Equal(t, "Alpha", table[0].TeamName)
	assert.Equal(t, 6, table[0].Points)
	assert.Equal(t, 2, table[0].Played)
	assert.Equal(t, 2, table[0].Won)
	assert.Equal(t, 5, table[0].GoalsFor)
	assert.Equal(t, 0, table[0].GoalsAgainst)
	assert.Equal(t, 5, table[0].GoalDiff)

	assert.Equal(t, "Beta", table[1].TeamName)
	assert.Equal(t, 1, table[1].Points)
	assert.Equal(t, -1, table[1].GoalDiff)

	assert.Equal(t, "Gamma", table[2].TeamName)
	assert.Equal(t, 1, table[2].Points)
	assert.Equal(t, -3, table[2].GoalDiff)
}

func TestComputeStandingsTiebreakers(t *testing.T) {
	t.Run("goal difference breaks equal points", func(t *testing.T) {
		teams := []*types.Team{team(1, "Narrow"), team(2, "Wide"), team(3, "Feeder")}
		matches := []*types.Match{
			finished(1, 3, 1, 0),
			finished(2, 3, 4, 0),
		}

		table := ComputeStandings(teams, matches)
		assert.Equal(t, "Wide", table[0].TeamName)
		assert.Equal(t, "Narrow", table[1].TeamName)
	})

	t.Run("goals scored breaks equal difference", func(t *testing.T) {
		teams := []*types.Team{team(1, "Low"), team(2, "High"), team(3, "Feeder")}
		matches := []*types.Match{
			finished(1, 3, 1, 0),
			finished(2, 3, 3, 2),
		}

		table := ComputeStandings(teams, matches)
		assert.Equal(t, "High", table[0].TeamName)
	})

	t.Run("name breaks full ties", func(t *testing.T) {
		teams := []*types.Team{team(2, "Zeta"), team(1, "Alpha")}

		table := ComputeStandings(teams, nil)
		assert.Equal(t, "Alpha", table[0].TeamName)
		assert.Equal(t, "Zeta", table[1].TeamName)
	})
}

func TestComputeStandingsIgnoresIncomplete(t *testing.T) {
	teams := []*types.Team{team(1, "Alpha"), team(2, "Beta")}

	scheduled := &types.Match{HomeTeamID: 1, AwayTeamID: 2, Status: types.MatchScheduled}
	unregistered := finished(1, 99, 5, 0)

	table := ComputeStandings(teams, []*types.Match{scheduled, unregistered})
	require.Len(t, table, 2)
	for _, row := range table {
		assert.Zero(t, row.Played)
		assert.Zero(t, row.Points)
	}
}

func TestComputeStandingsEmptyLeague(t *testing.T) {
	assert.Empty(t, ComputeStandings(nil, nil))
}
