// Package progress computes display values from challenge state: team
// and per-participant progress percentages, competitive rankings, the
// live leader, and contribution breakdowns. Everything here is a pure
// function of its inputs; missing targets and empty participant lists
// degrade to zero values, never errors.
package progress

import (
	"math"
	"sort"

	"kompanion-sync/internal/challenge"
)

// Metric is the primary measured quantity of a challenge
type Metric string

const (
	MetricDistance  Metric = "distance"
	MetricElevation Metric = "elevation"
	MetricNone      Metric = "none"
)

// PrimaryMetric returns the metric a challenge is measured by. Distance
// takes priority when both targets are set.
func PrimaryMetric(c *challenge.Challenge) Metric {
	switch {
	case c.Targets.Distance != nil:
		return MetricDistance
	case c.Targets.Elevation != nil:
		return MetricElevation
	default:
		return MetricNone
	}
}

// target returns the numeric goal for the primary metric, 0 when none
// is set
func target(c *challenge.Challenge) float64 {
	switch PrimaryMetric(c) {
	case MetricDistance:
		return *c.Targets.Distance
	case MetricElevation:
		return *c.Targets.Elevation
	default:
		return 0
	}
}

// metricValue returns a participant's contribution on the challenge's
// primary metric
func metricValue(c *challenge.Challenge, p challenge.Participant) float64 {
	switch PrimaryMetric(c) {
	case MetricDistance:
		return p.TotalDistance
	case MetricElevation:
		return p.TotalElevation
	default:
		return 0
	}
}

// TeamProgress returns the shared progress percentage of a
// collaborative challenge: the sum of all accepted participants'
// contributions against the target, capped at 100
func TeamProgress(c *challenge.Challenge) float64 {
	t := target(c)
	if t <= 0 {
		return 0
	}

	var total float64
	for _, p := range c.ActiveParticipants() {
		total += metricValue(c, p)
	}

	return math.Min(100, 100*total/t)
}

// ParticipantProgress returns one participant's individual progress
// against the full target, capped at 100. Used for competitive
// challenges, where every participant chases the same goal.
func ParticipantProgress(c *challenge.Challenge, p challenge.Participant) float64 {
	t := target(c)
	if t <= 0 {
		return 0
	}
	return math.Min(100, 100*metricValue(c, p)/t)
}

// Rank orders participants by the competitive goal: most ranks raw
// metric descending, least ascending, exact by absolute distance from
// the target ascending. Ties are broken by earliest acceptance, so the
// first to join wins a tie. The input slice is not modified.
func Rank(c *challenge.Challenge, participants []challenge.Participant, goal challenge.CompetitiveGoal) []challenge.Participant {
	ranked := make([]challenge.Participant, len(participants))
	copy(ranked, participants)

	t := target(c)
	key := func(p challenge.Participant) float64 {
		v := metricValue(c, p)
		switch goal {
		case challenge.GoalLeast:
			return v
		case challenge.GoalExact:
			return math.Abs(v - t)
		default:
			return -v
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ki, kj := key(ranked[i]), key(ranked[j])
		if ki != kj {
			return ki < kj
		}
		return acceptedBefore(ranked[i], ranked[j])
	})

	return ranked
}

// acceptedBefore reports whether a joined strictly before b.
// Participants without an acceptance time sort last.
func acceptedBefore(a, b challenge.Participant) bool {
	switch {
	case a.AcceptedAt == nil:
		return false
	case b.AcceptedAt == nil:
		return true
	default:
		return a.AcceptedAt.Before(*b.AcceptedAt)
	}
}

// Leader returns the top-ranked accepted participant of a competitive
// challenge. There is no leader unless the challenge is active: a
// finished challenge has a result, not a live leader.
func Leader(c *challenge.Challenge) *challenge.Participant {
	if c.Type != challenge.TypeCompetitive || c.Status != challenge.StatusActive {
		return nil
	}

	active := c.ActiveParticipants()
	if len(active) == 0 {
		return nil
	}

	ranked := Rank(c, active, c.CompetitiveGoal)
	leader := ranked[0]
	return &leader
}

// Contribution is one participant's slice of a breakdown chart
type Contribution struct {
	Participant challenge.Participant
	Value       float64
	// Percent is the participant's share of the total, rounded to the
	// nearest integer. Shares sum to approximately 100; rounding error
	// is accepted, not corrected.
	Percent int
}

// Breakdown returns each accepted participant's share of the total
// contribution on the primary metric, largest first. Participants with
// no positive contribution are excluded.
func Breakdown(c *challenge.Challenge) []Contribution {
	var total float64
	var contributors []challenge.Participant
	for _, p := range c.ActiveParticipants() {
		v := metricValue(c, p)
		if v > 0 {
			total += v
			contributors = append(contributors, p)
		}
	}
	if total <= 0 {
		return nil
	}

	out := make([]Contribution, 0, len(contributors))
	for _, p := range contributors {
		v := metricValue(c, p)
		out = append(out, Contribution{
			Participant: p,
			Value:       v,
			Percent:     int(math.Round(100 * v / total)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})

	return out
}
