package challenge

import (
	"encoding/json"
	"time"
)

// Type distinguishes shared-goal from head-to-head challenges
type Type string

const (
	TypeCollaborative Type = "collaborative"
	TypeCompetitive   Type = "competitive"
)

// Status is the server-owned lifecycle state of a challenge.
// draft -> active -> {completed, failed}; draft/active -> cancelled.
// Terminal states have no outgoing transitions. The client never sets a
// status locally; it only reflects what the server confirmed.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// CompetitiveGoal is the comparison rule used to rank competitive
// participants
type CompetitiveGoal string

const (
	GoalMost  CompetitiveGoal = "most"
	GoalLeast CompetitiveGoal = "least"
	GoalExact CompetitiveGoal = "exact"
)

// ParticipantStatus tracks one user's membership within a challenge.
// invited -> {accepted, declined}; accepted -> left.
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantAccepted ParticipantStatus = "accepted"
	ParticipantDeclined ParticipantStatus = "declined"
	ParticipantLeft     ParticipantStatus = "left"
)

// EventType classifies entries in the challenge event stream
type EventType string

const (
	EventCreated          EventType = "created"
	EventStarted          EventType = "started"
	EventActivityAdded    EventType = "activity_added"
	EventMilestoneReached EventType = "milestone_reached"
	EventLeadChange       EventType = "lead_change"
	EventCompleted        EventType = "completed"
	EventFailed           EventType = "failed"
	EventCancelled        EventType = "cancelled"
)

// Targets holds the goal thresholds for a challenge. At least one of
// Distance or Elevation is set at creation.
type Targets struct {
	Distance     *float64 `json:"distance,omitempty"`     // meters
	Elevation    *float64 `json:"elevation,omitempty"`    // meters
	Activities   *int     `json:"activities,omitempty"`   // activity count
	ActivityType string   `json:"activityType,omitempty"` // e.g. "Run", "Ride"
}

// UserProfile is the read-only projection of a participant's user
type UserProfile struct {
	UserID        int64  `json:"userId"`
	Username      string `json:"username"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Profile       string `json:"profile"`
	ProfileMedium string `json:"profileMedium,omitempty"`
}

// Participant is one user's membership record within a challenge.
// Contribution totals are server-computed snapshots; the client replaces
// them wholesale and never increments them locally.
type Participant struct {
	ID             int64             `json:"id"`
	ChallengeID    string            `json:"challengeId"`
	UserID         int64             `json:"userId"`
	User           UserProfile       `json:"user"`
	Status         ParticipantStatus `json:"status"`
	TotalDistance  float64           `json:"totalDistance"`  // meters
	TotalElevation float64           `json:"totalElevation"` // meters
	ActivityCount  int               `json:"activityCount"`
	InvitedAt      time.Time         `json:"invitedAt"`
	AcceptedAt     *time.Time        `json:"acceptedAt,omitempty"`
	LastActivityAt *time.Time        `json:"lastActivityAt,omitempty"`
}

// Challenge is a time-boxed, multi-party fitness goal
type Challenge struct {
	ID              string          `json:"id"`
	CreatorID       int64           `json:"creatorId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Type            Type            `json:"type"`
	Status          Status          `json:"status"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Targets         Targets         `json:"targets"`
	CompetitiveGoal CompetitiveGoal `json:"competitiveGoal,omitempty"`
	// Ordered by invitation time, as returned by the server
	Participants []Participant `json:"participants,omitempty"`
}

// Event is one append-only entry in the server's challenge event stream
type Event struct {
	ID          string          `json:"id"`
	ChallengeID string          `json:"challengeId"`
	ActorID     *int64          `json:"actorId,omitempty"`
	Type        EventType       `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// IsTerminal reports whether the challenge status has no outgoing
// transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanStart reports whether the start action is worth offering. Display
// hint only; legality is decided by the server.
func (c *Challenge) CanStart() bool {
	return c.Status == StatusDraft
}

// CanCancel reports whether the cancel action is worth offering
func (c *Challenge) CanCancel() bool {
	return c.Status == StatusDraft || c.Status == StatusActive
}

// ActiveParticipants returns the participants who have accepted, in
// invitation order
func (c *Challenge) ActiveParticipants() []Participant {
	var active []Participant
	for _, p := range c.Participants {
		if p.Status == ParticipantAccepted {
			active = append(active, p)
		}
	}
	return active
}

// ParticipantFor returns the participant row for a user, if any
func (c *Challenge) ParticipantFor(userID int64) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// ListFilters narrows a challenge list request
type ListFilters struct {
	Status Status
	Type   Type
}

// CreateRequest is the payload for creating a challenge
type CreateRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Type            Type            `json:"type"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Targets         Targets         `json:"targets"`
	CompetitiveGoal CompetitiveGoal `json:"competitiveGoal,omitempty"`
	InvitedUserIDs  []int64         `json:"invitedUserIds,omitempty"`
}

// UpdateRequest is the payload for editing a draft challenge
type UpdateRequest struct {
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Targets     *Targets   `json:"targets,omitempty"`
}

// EventBatch is the server's response to an event poll. LatestTimestamp
// is nil when the batch is empty.
type EventBatch struct {
	Events          []Event `json:"events"`
	LatestTimestamp *string `json:"latestTimestamp"`
}
