package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"kompanion-sync/internal/challenge"
	"kompanion-sync/internal/notify"
)

func emptyFilters() challenge.ListFilters {
	return challenge.ListFilters{}
}

// memTokenStore is an in-memory TokenStore for tests
type memTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (m *memTokenStore) Tokens() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh, nil
}

func (m *memTokenStore) SaveTokens(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	return nil
}

func (m *memTokenStore) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	return nil
}

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ notify.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

func writeEnvelope(w http.ResponseWriter, data any) {
	payload, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": json.RawMessage(payload)})
}

func TestSingleFlightRefresh(t *testing.T) {
	const concurrency = 5

	var (
		mu           sync.Mutex
		refreshCalls int
		oldTokenHits int
	)
	allUnauthorized := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/challenges", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer new_access" {
			writeEnvelope(w, []any{})
			return
		}

		mu.Lock()
		oldTokenHits++
		if oldTokenHits == concurrency {
			close(allUnauthorized)
		}
		mu.Unlock()

		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		// Hold the refresh until every request has seen its 401, so all
		// callers are forced to share this one in-flight refresh
		select {
		case <-allUnauthorized:
		case <-time.After(5 * time.Second):
			t.Error("Timed out waiting for concurrent 401s")
		}

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken != "old_refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"invalid refresh token"}`)
			return
		}

		mu.Lock()
		refreshCalls++
		mu.Unlock()

		writeEnvelope(w, map[string]string{
			"accessToken":  "new_access",
			"refreshToken": "new_refresh",
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memTokenStore{access: "old_access", refresh: "old_refresh"}
	client := NewClient(server.URL, tokens, &recordingNotifier{}, 10*time.Second)

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.ListChallenges(context.Background(), emptyFilters())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Request %d failed: %v", i, err)
		}
	}

	if refreshCalls != 1 {
		t.Errorf("Expected exactly 1 refresh call, got %d", refreshCalls)
	}

	access, refresh, _ := tokens.Tokens()
	if access != "new_access" || refresh != "new_refresh" {
		t.Errorf("Expected rotated tokens, got %q / %q", access, refresh)
	}
}

func TestRefreshFailureEndsSession(t *testing.T) {
	var hookCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/challenges", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid refresh token"}`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tokens := &memTokenStore{access: "stale", refresh: "stale"}
	notifier := &recordingNotifier{}
	client := NewClient(server.URL, tokens, notifier, 10*time.Second)
	client.SetSessionExpiredHook(func() { hookCalls++ })

	_, err := client.ListChallenges(context.Background(), emptyFilters())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Expected ErrSessionExpired, got %v", err)
	}

	if hookCalls != 1 {
		t.Errorf("Expected session-expired hook called once, got %d", hookCalls)
	}

	access, refresh, _ := tokens.Tokens()
	if access != "" || refresh != "" {
		t.Errorf("Expected cleared tokens, got %q / %q", access, refresh)
	}
}

func TestNotificationPolicy(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNotify string // "" means no notification expected
	}{
		{"not found", http.StatusNotFound, `{"error":"no such challenge"}`, "Resource not found."},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, "Server error. Please try again later."},
		{"unavailable", http.StatusServiceUnavailable, `{}`, "Service unavailable. Please try again later."},
		{"bad request", http.StatusBadRequest, `{"error":"endDate must be after startDate"}`, ""},
		{"forbidden", http.StatusForbidden, `{"error":"not your challenge"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			notifier := &recordingNotifier{}
			client := NewClient(server.URL, &memTokenStore{access: "tok", refresh: "ref"}, notifier, 10*time.Second)

			_, err := client.GetChallenge(context.Background(), "c1")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, apiErr.StatusCode)
			}

			messages := notifier.all()
			if tt.wantNotify == "" {
				if len(messages) != 0 {
					t.Errorf("Expected no notification, got %v", messages)
				}
			} else {
				if len(messages) != 1 || messages[0] != tt.wantNotify {
					t.Errorf("Expected notification %q, got %v", tt.wantNotify, messages)
				}
			}
		})
	}
}

func TestEnvelopeFailurePassesMessageVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":"Challenge is already active"}`)
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	client := NewClient(server.URL, &memTokenStore{access: "tok", refresh: "ref"}, notifier, 10*time.Second)

	err := client.StartChallenge(context.Background(), "c1")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	if got := ErrorMessage(err); got != "Challenge is already active" {
		t.Errorf("Expected server message passed through verbatim, got %q", got)
	}
	if len(notifier.all()) != 0 {
		t.Errorf("Expected no auto-notification for envelope failure, got %v", notifier.all())
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, []any{})
	}))
	defer server.Close()

	client := NewClient(server.URL, &memTokenStore{access: "abc123", refresh: "ref"}, &recordingNotifier{}, 10*time.Second)

	if _, err := client.ListChallenges(context.Background(), emptyFilters()); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if gotAuth != "Bearer abc123" {
		t.Errorf("Expected bearer token attached, got %q", gotAuth)
	}
}
