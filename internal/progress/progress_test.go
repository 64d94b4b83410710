package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kompanion-sync/internal/challenge"
)

func floatPtr(v float64) *float64 { return &v }

func accepted(userID int64, distance float64, joinedAt time.Time) challenge.Participant {
	return challenge.Participant{
		UserID:        userID,
		Status:        challenge.ParticipantAccepted,
		TotalDistance: distance,
		AcceptedAt:    &joinedAt,
	}
}

func collaborative(targetMeters float64, participants ...challenge.Participant) *challenge.Challenge {
	return &challenge.Challenge{
		ID:           "c1",
		Type:         challenge.TypeCollaborative,
		Status:       challenge.StatusActive,
		Targets:      challenge.Targets{Distance: floatPtr(targetMeters)},
		Participants: participants,
	}
}

func TestTeamProgress(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	c := collaborative(10000,
		accepted(1, 1000, base),
		accepted(2, 2500, base.Add(time.Hour)),
		accepted(3, 6500, base.Add(2*time.Hour)),
	)
	assert.Equal(t, 100.0, TeamProgress(c), "full target reached, capped at 100")

	c = collaborative(10000,
		accepted(1, 1000, base),
		accepted(2, 2500, base.Add(time.Hour)),
	)
	assert.Equal(t, 35.0, TeamProgress(c))
}

func TestTeamProgressIgnoresNonAccepted(t *testing.T) {
	base := time.Now()
	c := collaborative(1000, accepted(1, 500, base))
	c.Participants = append(c.Participants, challenge.Participant{
		UserID:        2,
		Status:        challenge.ParticipantInvited,
		TotalDistance: 99999,
	})

	assert.Equal(t, 50.0, TeamProgress(c))
}

func TestTeamProgressNoTarget(t *testing.T) {
	c := &challenge.Challenge{Type: challenge.TypeCollaborative}
	assert.Equal(t, 0.0, TeamProgress(c))
}

func TestDistanceTakesPriorityOverElevation(t *testing.T) {
	base := time.Now()
	c := collaborative(1000, accepted(1, 250, base))
	c.Targets.Elevation = floatPtr(100)
	c.Participants[0].TotalElevation = 100

	assert.Equal(t, MetricDistance, PrimaryMetric(c))
	assert.Equal(t, 25.0, TeamProgress(c))
}

func TestElevationFallback(t *testing.T) {
	base := time.Now()
	p := accepted(1, 0, base)
	p.TotalElevation = 300
	c := &challenge.Challenge{
		Type:         challenge.TypeCollaborative,
		Status:       challenge.StatusActive,
		Targets:      challenge.Targets{Elevation: floatPtr(1200)},
		Participants: []challenge.Participant{p},
	}

	assert.Equal(t, 25.0, TeamProgress(c))
}

func TestParticipantProgressAgainstFullTarget(t *testing.T) {
	base := time.Now()
	c := collaborative(10000, accepted(1, 2500, base), accepted(2, 5000, base))
	c.Type = challenge.TypeCompetitive

	// Each participant chases the whole target, nothing is divided
	assert.Equal(t, 25.0, ParticipantProgress(c, c.Participants[0]))
	assert.Equal(t, 50.0, ParticipantProgress(c, c.Participants[1]))
}

func TestRankMost(t *testing.T) {
	base := time.Now()
	c := collaborative(10000)

	ranked := Rank(c, []challenge.Participant{
		accepted(1, 1000, base),
		accepted(2, 8000, base),
		accepted(3, 4000, base),
	}, challenge.GoalMost)

	require.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].UserID)
	assert.Equal(t, int64(3), ranked[1].UserID)
	assert.Equal(t, int64(1), ranked[2].UserID)
}

func TestRankLeast(t *testing.T) {
	base := time.Now()
	c := collaborative(10000)

	ranked := Rank(c, []challenge.Participant{
		accepted(1, 1000, base),
		accepted(2, 8000, base),
	}, challenge.GoalLeast)

	assert.Equal(t, int64(1), ranked[0].UserID)
	assert.Equal(t, int64(2), ranked[1].UserID)
}

func TestRankExact(t *testing.T) {
	base := time.Now()
	c := collaborative(5000)

	ranked := Rank(c, []challenge.Participant{
		accepted(1, 1000, base), // 4000 off
		accepted(2, 5200, base), // 200 off
		accepted(3, 4500, base), // 500 off
	}, challenge.GoalExact)

	assert.Equal(t, int64(2), ranked[0].UserID)
	assert.Equal(t, int64(3), ranked[1].UserID)
	assert.Equal(t, int64(1), ranked[2].UserID)
}

func TestRankTieBrokenByJoinOrder(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	c := collaborative(10000)

	early := accepted(1, 5000, base)
	late := accepted(2, 5000, base.Add(time.Hour))

	ranked := Rank(c, []challenge.Participant{late, early}, challenge.GoalMost)
	assert.Equal(t, int64(1), ranked[0].UserID, "first to join wins the tie")

	// Swapping the join order swaps the rank
	early.AcceptedAt, late.AcceptedAt = late.AcceptedAt, early.AcceptedAt
	ranked = Rank(c, []challenge.Participant{late, early}, challenge.GoalMost)
	assert.Equal(t, int64(2), ranked[0].UserID)
}

func TestRankDoesNotModifyInput(t *testing.T) {
	base := time.Now()
	c := collaborative(10000)
	in := []challenge.Participant{
		accepted(1, 1000, base),
		accepted(2, 8000, base),
	}

	Rank(c, in, challenge.GoalMost)
	assert.Equal(t, int64(1), in[0].UserID)
}

func TestLeader(t *testing.T) {
	base := time.Now()
	c := collaborative(10000,
		accepted(1, 1000, base),
		accepted(2, 8000, base),
	)
	c.Type = challenge.TypeCompetitive
	c.CompetitiveGoal = challenge.GoalMost

	leader := Leader(c)
	require.NotNil(t, leader)
	assert.Equal(t, int64(2), leader.UserID)
}

func TestLeaderOnlyWhileActive(t *testing.T) {
	base := time.Now()
	c := collaborative(10000, accepted(1, 1000, base))
	c.Type = challenge.TypeCompetitive
	c.CompetitiveGoal = challenge.GoalMost

	for _, status := range []challenge.Status{
		challenge.StatusDraft,
		challenge.StatusCompleted,
		challenge.StatusFailed,
		challenge.StatusCancelled,
	} {
		c.Status = status
		assert.Nil(t, Leader(c), "no live leader while %s", status)
	}
}

func TestLeaderNilForCollaborative(t *testing.T) {
	base := time.Now()
	c := collaborative(10000, accepted(1, 1000, base))
	assert.Nil(t, Leader(c))
}

func TestBreakdown(t *testing.T) {
	base := time.Now()
	c := collaborative(10000,
		accepted(1, 1000, base),
		accepted(2, 2500, base),
		accepted(3, 6500, base),
		accepted(4, 0, base), // no contribution, excluded
	)

	got := Breakdown(c)
	require.Len(t, got, 3)

	assert.Equal(t, int64(3), got[0].Participant.UserID)
	assert.Equal(t, 65, got[0].Percent)
	assert.Equal(t, 25, got[1].Percent)
	assert.Equal(t, 10, got[2].Percent)
}

func TestBreakdownEmpty(t *testing.T) {
	c := collaborative(10000)
	assert.Nil(t, Breakdown(c))
}
