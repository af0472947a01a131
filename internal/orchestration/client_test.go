package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Tripleo/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		URL:          server.URL,
		Token:        "secret",
		PollInterval: time.Millisecond,
		StackTimeout: 5 * time.Second,
	})
}

func writeStack(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"stack": map[string]any{
			"id":           "stack-id",
			"stack_name":   "overcloud",
			"stack_status": status,
		},
	})
}

// --- GetStack Tests ---

func TestClient_GetStack(t *testing.T) {
	var token string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stacks/overcloud":
			token = r.Header.Get("X-Auth-Token")
			http.Redirect(w, r, "/stacks/overcloud/stack-id", http.StatusFound)
		case "/stacks/overcloud/stack-id":
			writeStack(w, "CREATE_COMPLETE")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	stack, err := client.GetStack(context.Background(), "overcloud")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "secret" {
		t.Errorf("expected auth token header, got %q", token)
	}
	if stack.ID != "stack-id" || stack.Status != "CREATE_COMPLETE" {
		t.Errorf("unexpected stack %+v", stack)
	}
}

func TestClient_GetStack_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"title": "Not Found", "error": {"message": "The Stack (overcloud) could not be found."}}`))
	})

	stack, err := client.GetStack(context.Background(), "overcloud")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stack != nil {
		t.Errorf("expected no stack, got %+v", stack)
	}
}

func TestClient_GetStack_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"title": "Forbidden", "error": {"message": "not allowed"}}`))
	})

	_, err := client.GetStack(context.Background(), "overcloud")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "not allowed" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

// --- WaitForStack Tests ---

func TestClient_WaitForStack(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		statuses  []string
		want      string
		completed bool
	}{
		{"create appears and completes", domain.StackActionCreate, []string{"", "CREATE_IN_PROGRESS", "CREATE_COMPLETE"}, "CREATE_COMPLETE", true},
		{"update completes", domain.StackActionUpdate, []string{"CREATE_COMPLETE", "UPDATE_IN_PROGRESS", "UPDATE_COMPLETE"}, "UPDATE_COMPLETE", true},
		{"create failed", domain.StackActionCreate, []string{"CREATE_IN_PROGRESS", "CREATE_FAILED"}, "CREATE_FAILED", false},
		{"update rolled back", domain.StackActionUpdate, []string{"UPDATE_IN_PROGRESS", "ROLLBACK_IN_PROGRESS", "ROLLBACK_COMPLETE"}, "ROLLBACK_COMPLETE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				i := int(calls.Add(1)) - 1
				if i >= len(tt.statuses) {
					i = len(tt.statuses) - 1
				}
				if tt.statuses[i] == "" {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				writeStack(w, tt.statuses[i])
			})

			stack, err := client.WaitForStack(context.Background(), "overcloud", tt.action)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stack.Status != tt.want {
				t.Errorf("status = %s, want %s", stack.Status, tt.want)
			}
			if stack.Completed(tt.action) != tt.completed {
				t.Errorf("Completed(%s) = %v, want %v", tt.action, stack.Completed(tt.action), tt.completed)
			}
			if int(calls.Load()) != len(tt.statuses) {
				t.Errorf("expected %d polls, got %d", len(tt.statuses), calls.Load())
			}
		})
	}
}

func TestClient_WaitForStack_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStack(w, "UPDATE_IN_PROGRESS")
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		URL:          server.URL,
		PollInterval: time.Millisecond,
		StackTimeout: 20 * time.Millisecond,
	})

	stack, err := client.WaitForStack(context.Background(), "overcloud", domain.StackActionUpdate)
	if !errors.Is(err, ErrStackNotReady) {
		t.Fatalf("expected ErrStackNotReady, got %v", err)
	}
	if stack == nil || stack.Status != "UPDATE_IN_PROGRESS" {
		t.Errorf("expected last seen stack, got %+v", stack)
	}
}

func TestClient_WaitForStack_APIError(t *testing.T) {
	var calls atomic.Int32

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	if _, err := client.WaitForStack(context.Background(), "overcloud", domain.StackActionCreate); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("API errors should not be retried, got %d calls", calls.Load())
	}
}
