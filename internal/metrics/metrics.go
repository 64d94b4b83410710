package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Kompanion API operations
	OpListChallenges     = "list_challenges"
	OpGetChallenge       = "get_challenge"
	OpCreateChallenge    = "create_challenge"
	OpUpdateChallenge    = "update_challenge"
	OpDeleteChallenge    = "delete_challenge"
	OpStartChallenge     = "start_challenge"
	OpCancelChallenge    = "cancel_challenge"
	OpAcceptInvitation   = "accept_invitation"
	OpDeclineInvitation  = "decline_invitation"
	OpLeaveChallenge     = "leave_challenge"
	OpInviteFriends      = "invite_friends"
	OpPendingInvitations = "pending_invitations"
	OpEvents             = "events"
	OpSearchFriends      = "search_friends"
	OpRefreshToken       = "refresh_token"
	OpLogin              = "login"
	OpLogout             = "logout"

	// Token refresh results
	RefreshResultSuccess = "success"
	RefreshResultFailure = "failure"

	// Poll cycle outcomes
	PollOutcomeEvents = "events"
	PollOutcomeEmpty  = "empty"
	PollOutcomeError  = "error"
)

// API client metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kompanion_api_requests_total",
			Help: "Total number of Kompanion API requests",
		},
		[]string{"operation", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kompanion_api_request_duration_seconds",
			Help:    "Kompanion API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation", "status_code"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"result"},
	)
)

// Poller metrics
var (
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poll_cycles_total",
			Help: "Total number of event poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	PollerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poller_active",
			Help: "Whether the event poller is currently active (1) or not (0)",
		},
	)

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_events_received_total",
			Help: "Total number of challenge events received by type",
		},
		[]string{"type"},
	)
)

// Notification metrics
var (
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of user-facing notifications emitted by level",
		},
		[]string{"level"},
	)
)
