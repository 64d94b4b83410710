// Package friends implements the invite search flow: remote friend
// search with accent-insensitive matching and a selection set that
// survives query changes.
package friends

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Friend is a read-only candidate invitee projection
type Friend struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Firstname     string `json:"firstname"`
	Lastname      string `json:"lastname"`
	Profile       string `json:"profile"`
	ProfileMedium string `json:"profileMedium,omitempty"`
}

// Searcher is the remote friend search dependency
type Searcher interface {
	SearchFriends(ctx context.Context, query string) ([]Friend, error)
}

// Selector maintains the invite working set. Selected friends are always
// resolved from a cumulative cache of every search response seen this
// session, so a friend picked under one query stays visible after the
// query changes or is cleared.
type Selector struct {
	api Searcher

	mu       sync.Mutex
	cache    map[int64]Friend // every friend ever seen
	results  []Friend         // most recent search response
	selected []int64          // selection order preserved
}

// NewSelector creates a friend selector backed by the given search API
func NewSelector(api Searcher) *Selector {
	return &Selector{
		api:   api,
		cache: make(map[int64]Friend),
	}
}

// Search queries the server and folds the response into the session cache
func (s *Selector) Search(ctx context.Context, query string) ([]Friend, error) {
	found, err := s.api.SearchFriends(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("friend search failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range found {
		s.cache[f.ID] = f
	}
	s.results = found

	return found, nil
}

// Filter returns the current search results matching the query,
// accent-insensitively. An empty query returns all current results.
func (s *Selector) Filter(query string) []Friend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		out := make([]Friend, len(s.results))
		copy(out, s.results)
		return out
	}

	q := normalizeForSearch(query)
	var matched []Friend
	for _, f := range s.results {
		if Matches(f, q) {
			matched = append(matched, f)
		}
	}
	return matched
}

// Matches reports whether a friend's first or last name contains the
// already-normalized query
func Matches(f Friend, normalizedQuery string) bool {
	return strings.Contains(normalizeForSearch(f.Firstname), normalizedQuery) ||
		strings.Contains(normalizeForSearch(f.Lastname), normalizedQuery)
}

// Toggle adds the friend to the selection, or removes it if already
// selected
func (s *Selector) Toggle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sel := range s.selected {
		if sel == id {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
	s.selected = append(s.selected, id)
}

// IsSelected reports whether the friend is in the selection set
func (s *Selector) IsSelected(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sel := range s.selected {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedIDs returns the selected friend IDs in selection order
func (s *Selector) SelectedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, len(s.selected))
	copy(out, s.selected)
	return out
}

// SelectedFriends resolves the selection from the session cache, never
// from the current result set, which may no longer contain a previously
// selected friend.
func (s *Selector) SelectedFriends() []Friend {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Friend
	for _, id := range s.selected {
		if f, ok := s.cache[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// ClearSelection empties the selection set but keeps the cache
func (s *Selector) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = nil
}
