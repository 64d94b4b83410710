package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"kompanion-sync/internal/challenge"
	"kompanion-sync/internal/metrics"
)

// ListChallenges fetches the current user's challenges, optionally
// filtered by status and type
func (c *Client) ListChallenges(ctx context.Context, filters challenge.ListFilters) ([]challenge.Challenge, error) {
	params := url.Values{}
	if filters.Status != "" {
		params.Set("status", string(filters.Status))
	}
	if filters.Type != "" {
		params.Set("type", string(filters.Type))
	}

	path := "/challenges"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	data, err := c.do(ctx, metrics.OpListChallenges, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}

	var challenges []challenge.Challenge
	if err := json.Unmarshal(data, &challenges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenges: %w", err)
	}

	return challenges, nil
}

// GetChallenge fetches a single challenge with its participants
func (c *Client) GetChallenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	data, err := c.do(ctx, metrics.OpGetChallenge, http.MethodGet, "/challenges/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %s: %w", id, err)
	}

	var ch challenge.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &ch, nil
}

// CreateChallenge creates a new draft challenge
func (c *Client) CreateChallenge(ctx context.Context, req challenge.CreateRequest) (*challenge.Challenge, error) {
	data, err := c.do(ctx, metrics.OpCreateChallenge, http.MethodPost, "/challenges", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	var ch challenge.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &ch, nil
}

// UpdateChallenge edits a draft challenge
func (c *Client) UpdateChallenge(ctx context.Context, id string, req challenge.UpdateRequest) (*challenge.Challenge, error) {
	data, err := c.do(ctx, metrics.OpUpdateChallenge, http.MethodPatch, "/challenges/"+id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update challenge %s: %w", id, err)
	}

	var ch challenge.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &ch, nil
}

// DeleteChallenge deletes a challenge
func (c *Client) DeleteChallenge(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpDeleteChallenge, http.MethodDelete, "/challenges/"+id, nil); err != nil {
		return fmt.Errorf("failed to delete challenge %s: %w", id, err)
	}
	return nil
}

// StartChallenge asks the server to transition a draft challenge to
// active. Legality is server-enforced; a rejection carries the server's
// error message.
func (c *Client) StartChallenge(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpStartChallenge, http.MethodPost, "/challenges/"+id+"/start", nil); err != nil {
		return err
	}
	return nil
}

// CancelChallenge asks the server to cancel a draft or active challenge
func (c *Client) CancelChallenge(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpCancelChallenge, http.MethodPost, "/challenges/"+id+"/cancel", nil); err != nil {
		return err
	}
	return nil
}

// AcceptInvitation accepts the caller's pending invitation
func (c *Client) AcceptInvitation(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpAcceptInvitation, http.MethodPost, "/challenges/"+id+"/accept", nil); err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	return nil
}

// DeclineInvitation declines the caller's pending invitation
func (c *Client) DeclineInvitation(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpDeclineInvitation, http.MethodPost, "/challenges/"+id+"/decline", nil); err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	return nil
}

// LeaveChallenge removes the caller from a challenge they had accepted
func (c *Client) LeaveChallenge(ctx context.Context, id string) error {
	if _, err := c.do(ctx, metrics.OpLeaveChallenge, http.MethodPost, "/challenges/"+id+"/leave", nil); err != nil {
		return fmt.Errorf("failed to leave challenge: %w", err)
	}
	return nil
}

// InviteFriends invites users to a challenge. The caller is responsible
// for excluding users who are already participants.
func (c *Client) InviteFriends(ctx context.Context, id string, userIDs []int64) error {
	body := map[string][]int64{"userIds": userIDs}
	if _, err := c.do(ctx, metrics.OpInviteFriends, http.MethodPost, "/challenges/"+id+"/invite", body); err != nil {
		return fmt.Errorf("failed to invite friends: %w", err)
	}
	return nil
}

// PendingInvitations fetches the caller's pending challenge invitations
func (c *Client) PendingInvitations(ctx context.Context) ([]challenge.Participant, error) {
	data, err := c.do(ctx, metrics.OpPendingInvitations, http.MethodGet, "/challenges/invitations", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invitations: %w", err)
	}

	var invitations []challenge.Participant
	if err := json.Unmarshal(data, &invitations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invitations: %w", err)
	}

	return invitations, nil
}

// Events fetches all challenge events with timestamp strictly greater
// than since. An empty since means all account-relevant history, as
// defined by the server.
func (c *Client) Events(ctx context.Context, since string) (*challenge.EventBatch, error) {
	path := "/challenges/events"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	return c.eventBatch(ctx, path)
}

// ChallengeEvents fetches the event stream for a single challenge
func (c *Client) ChallengeEvents(ctx context.Context, id, since string) (*challenge.EventBatch, error) {
	path := "/challenges/" + id + "/events"
	if since != "" {
		path += "?since=" + url.QueryEscape(since)
	}

	return c.eventBatch(ctx, path)
}

func (c *Client) eventBatch(ctx context.Context, path string) (*challenge.EventBatch, error) {
	data, err := c.do(ctx, metrics.OpEvents, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var batch challenge.EventBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}

	return &batch, nil
}
