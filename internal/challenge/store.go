package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kompanion-sync/internal/notify"
)

// API is the remote challenge surface the store depends on
type API interface {
	ListChallenges(ctx context.Context, filters ListFilters) ([]Challenge, error)
	GetChallenge(ctx context.Context, id string) (*Challenge, error)
	CreateChallenge(ctx context.Context, req CreateRequest) (*Challenge, error)
	UpdateChallenge(ctx context.Context, id string, req UpdateRequest) (*Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error
	StartChallenge(ctx context.Context, id string) error
	CancelChallenge(ctx context.Context, id string) error
	AcceptInvitation(ctx context.Context, id string) error
	DeclineInvitation(ctx context.Context, id string) error
	LeaveChallenge(ctx context.Context, id string) error
	InviteFriends(ctx context.Context, id string, userIDs []int64) error
	PendingInvitations(ctx context.Context) ([]Participant, error)
	Events(ctx context.Context, since string) (*EventBatch, error)
}

// CursorStore persists the event poll cursor across restarts. May be nil.
type CursorStore interface {
	LoadCursor() (string, error)
	SaveCursor(cursor string) error
}

// serverMessager is implemented by API errors carrying a server-provided
// message that should be surfaced to the user unmodified
type serverMessager interface {
	ServerMessage() string
}

// Store holds the client's view of the challenge world: the challenge
// collection, the currently-viewed challenge, pending invitations, and
// the event poll cursor. All state updates are whole-collection or
// whole-record replacements after a server response; the store never
// patches state optimistically.
type Store struct {
	api      API
	notifier notify.Notifier
	cursors  CursorStore
	logger   *slog.Logger

	pollInterval time.Duration

	mu                 sync.Mutex
	challenges         []Challenge
	currentChallenge   *Challenge
	pendingInvitations []Participant
	lastEventTimestamp string
	loading            bool

	pollMu sync.Mutex
	poll   *pollTask
}

// NewStore creates a challenge store. cursors may be nil, in which case
// the poll cursor lives only in memory and the first poll after a
// restart re-reads account history.
func NewStore(api API, notifier notify.Notifier, cursors CursorStore, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	s := &Store{
		api:          api,
		notifier:     notifier,
		cursors:      cursors,
		logger:       slog.Default(),
		pollInterval: pollInterval,
	}

	if cursors != nil {
		cursor, err := cursors.LoadCursor()
		if err != nil {
			s.logger.Warn("failed to load poll cursor", "error", err)
		} else {
			s.lastEventTimestamp = cursor
		}
	}

	return s
}

// Challenges returns a snapshot of the challenge collection
func (s *Store) Challenges() []Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Challenge, len(s.challenges))
	copy(out, s.challenges)
	return out
}

// CurrentChallenge returns the currently-viewed challenge, if any
func (s *Store) CurrentChallenge() *Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentChallenge == nil {
		return nil
	}
	ch := *s.currentChallenge
	return &ch
}

// PendingInvitations returns a snapshot of the caller's pending
// invitations
func (s *Store) PendingInvitations() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Participant, len(s.pendingInvitations))
	copy(out, s.pendingInvitations)
	return out
}

// LastEventTimestamp returns the current poll cursor, "" before the
// first successful poll
func (s *Store) LastEventTimestamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventTimestamp
}

// IsLoading reports whether a collection fetch is in flight
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// FetchChallenges replaces the challenge collection with a fresh server
// snapshot. On failure the collection is left unchanged.
func (s *Store) FetchChallenges(ctx context.Context) {
	s.setLoading(true)
	defer s.setLoading(false)

	challenges, err := s.api.ListChallenges(ctx, ListFilters{})
	if err != nil {
		s.logger.Error("failed to fetch challenges", "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to load challenges")
		return
	}

	s.mu.Lock()
	s.challenges = challenges
	s.mu.Unlock()
}

// FetchChallengeByID replaces the currently-viewed challenge with a
// fresh server snapshot
func (s *Store) FetchChallengeByID(ctx context.Context, id string) {
	s.setLoading(true)
	defer s.setLoading(false)

	ch, err := s.api.GetChallenge(ctx, id)
	if err != nil {
		s.logger.Error("failed to fetch challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to load challenge")
		return
	}

	s.mu.Lock()
	s.currentChallenge = ch
	s.mu.Unlock()
}

// FetchPendingInvitations refreshes the pending-invitations list.
// Failures are logged but not surfaced; the list refreshes on the next
// relevant action.
func (s *Store) FetchPendingInvitations(ctx context.Context) {
	invitations, err := s.api.PendingInvitations(ctx)
	if err != nil {
		s.logger.Error("failed to fetch invitations", "error", err)
		return
	}

	s.mu.Lock()
	s.pendingInvitations = invitations
	s.mu.Unlock()
}

// CreateChallenge creates a new draft challenge and refetches the
// collection. Returns nil when creation failed; the failure has already
// been surfaced to the user.
func (s *Store) CreateChallenge(ctx context.Context, req CreateRequest) *Challenge {
	if err := validateCreate(req); err != nil {
		s.logger.Warn("rejected challenge creation", "error", err)
		s.notifier.Notify(notify.LevelError, err.Error())
		return nil
	}

	ch, err := s.api.CreateChallenge(ctx, req)
	if err != nil {
		s.logger.Error("failed to create challenge", "error", err)
		s.notifier.Notify(notify.LevelError, serverMessage(err, "Failed to create challenge"))
		return nil
	}

	s.FetchChallenges(ctx)
	s.notifier.Notify(notify.LevelSuccess, "Challenge created successfully!")

	return ch
}

// UpdateChallenge edits a draft challenge and refetches the single
// record on success
func (s *Store) UpdateChallenge(ctx context.Context, id string, req UpdateRequest) {
	if _, err := s.api.UpdateChallenge(ctx, id, req); err != nil {
		s.logger.Error("failed to update challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to update challenge")
		return
	}

	s.FetchChallengeByID(ctx, id)
	s.notifier.Notify(notify.LevelSuccess, "Challenge updated successfully!")
}

// DeleteChallenge deletes a challenge and refetches the collection
func (s *Store) DeleteChallenge(ctx context.Context, id string) {
	if err := s.api.DeleteChallenge(ctx, id); err != nil {
		s.logger.Error("failed to delete challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to delete challenge")
		return
	}

	s.FetchChallenges(ctx)
	s.notifier.Notify(notify.LevelSuccess, "Challenge deleted")
}

// StartChallenge asks the server to start a draft challenge. Legality
// lives server-side; a rejection is surfaced with the server's error
// message unmodified.
func (s *Store) StartChallenge(ctx context.Context, id string) {
	if err := s.api.StartChallenge(ctx, id); err != nil {
		s.logger.Error("failed to start challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, serverMessage(err, "Failed to start challenge"))
		return
	}

	s.FetchChallengeByID(ctx, id)
	s.notifier.Notify(notify.LevelSuccess, "Challenge started!")
}

// CancelChallenge asks the server to cancel a draft or active challenge
func (s *Store) CancelChallenge(ctx context.Context, id string) {
	if err := s.api.CancelChallenge(ctx, id); err != nil {
		s.logger.Error("failed to cancel challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, serverMessage(err, "Failed to cancel challenge"))
		return
	}

	s.FetchChallengeByID(ctx, id)
	s.notifier.Notify(notify.LevelSuccess, "Challenge cancelled")
}

// AcceptInvitation accepts a pending invitation and refreshes both the
// challenge collection and the invitation list
func (s *Store) AcceptInvitation(ctx context.Context, id string) {
	if err := s.api.AcceptInvitation(ctx, id); err != nil {
		s.logger.Error("failed to accept invitation", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to accept invitation")
		return
	}

	s.FetchChallenges(ctx)
	s.FetchPendingInvitations(ctx)
	s.notifier.Notify(notify.LevelSuccess, "Invitation accepted!")
}

// DeclineInvitation declines a pending invitation and refreshes the
// invitation list
func (s *Store) DeclineInvitation(ctx context.Context, id string) {
	if err := s.api.DeclineInvitation(ctx, id); err != nil {
		s.logger.Error("failed to decline invitation", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to decline invitation")
		return
	}

	s.FetchPendingInvitations(ctx)
	s.notifier.Notify(notify.LevelSuccess, "Invitation declined")
}

// LeaveChallenge removes the caller from an accepted challenge and
// refetches the collection
func (s *Store) LeaveChallenge(ctx context.Context, id string) {
	if err := s.api.LeaveChallenge(ctx, id); err != nil {
		s.logger.Error("failed to leave challenge", "id", id, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to leave challenge")
		return
	}

	s.FetchChallenges(ctx)
	s.notifier.Notify(notify.LevelSuccess, "Left challenge")
}

// InviteFriends invites users to a challenge and refetches the single
// record on success. The invite UI is responsible for excluding users
// who are already participants; the store does not re-filter.
func (s *Store) InviteFriends(ctx context.Context, challengeID string, userIDs []int64) {
	if len(userIDs) == 0 {
		s.notifier.Notify(notify.LevelError, "Select at least one friend to invite")
		return
	}

	if err := s.api.InviteFriends(ctx, challengeID, userIDs); err != nil {
		s.logger.Error("failed to invite friends", "id", challengeID, "error", err)
		s.notifier.Notify(notify.LevelError, "Failed to send invitations")
		return
	}

	s.FetchChallengeByID(ctx, challengeID)
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Invited %d friend(s)!", len(userIDs)))
}

// Reset stops polling and drops all in-memory state. Called on logout.
func (s *Store) Reset() {
	s.StopPolling()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges = nil
	s.currentChallenge = nil
	s.pendingInvitations = nil
	s.lastEventTimestamp = ""
	s.loading = false
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// validateCreate enforces the creation constraints the server would
// reject anyway: name, type, ordered dates, and at least one of the
// distance/elevation targets
func validateCreate(req CreateRequest) error {
	if req.Name == "" {
		return errors.New("Challenge name is required")
	}
	if req.Type != TypeCollaborative && req.Type != TypeCompetitive {
		return errors.New("Challenge type is required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return errors.New("Start and end dates are required")
	}
	if !req.EndDate.After(req.StartDate) {
		return errors.New("End date must be after start date")
	}
	if req.Targets.Distance == nil && req.Targets.Elevation == nil {
		return errors.New("Set a distance or elevation target")
	}
	return nil
}

// serverMessage extracts the server-provided error message, falling
// back to a generic action description
func serverMessage(err error, fallback string) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return fallback
}
