package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"kompanion-sync/internal/friends"
	"kompanion-sync/internal/metrics"
)

// SearchFriends searches Kompanion users by name
func (c *Client) SearchFriends(ctx context.Context, query string) ([]friends.Friend, error) {
	path := "/friends/search?q=" + url.QueryEscape(query)

	data, err := c.do(ctx, metrics.OpSearchFriends, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search friends: %w", err)
	}

	var found []friends.Friend
	if err := json.Unmarshal(data, &found); err != nil {
		return nil, fmt.Errorf("failed to unmarshal friends: %w", err)
	}

	return found, nil
}
