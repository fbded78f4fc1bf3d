package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chaintask-client/pkg/task"
)

func TestLogin_StoresTokenForLaterCalls(t *testing.T) {
	var seenToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode login body: %v", err)
			}
			if req["email"] != "a@b.c" || req["password"] != "hunter2" {
				t.Errorf("unexpected credentials: %v", req)
			}
			json.NewEncoder(w).Encode(LoginResult{Token: "tok-123", Identity: "alice"})
		case "/api/tasks":
			seenToken = r.Header.Get("x-auth-token")
			json.NewEncoder(w).Encode([]task.Metadata{{TaskID: 1}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL + "/api")

	result, err := client.Login(context.Background(), "a@b.c", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Identity != "alice" {
		t.Fatalf("expected identity alice, got %q", result.Identity)
	}

	meta, err := client.ListTaskMetadata(context.Background(), task.MetadataQuery{})
	if err != nil {
		t.Fatalf("ListTaskMetadata: %v", err)
	}
	if len(meta) != 1 {
		t.Fatalf("expected 1 metadata record, got %d", len(meta))
	}
	if seenToken != "tok-123" {
		t.Fatalf("expected token header %q, got %q", "tok-123", seenToken)
	}
}

func TestLogin_BackendMessagePreferred(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"msg": "Wrong credentials"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "a@b.c", "wrong")
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if err.Error() != "Wrong credentials" {
		t.Fatalf("expected backend message passed through, got %q", err.Error())
	}
}

func TestAuthedCall_FailsFastWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the network without a token")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ListTaskMetadata(context.Background(), task.MetadataQuery{})
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestListTaskMetadata_ForwardsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "Pending" || q.Get("tag") != "work" {
			t.Errorf("unexpected query %v", q)
		}
		json.NewEncoder(w).Encode([]task.Metadata{})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetToken("tok")
	_, err := client.ListTaskMetadata(context.Background(), task.MetadataQuery{Status: task.StatusPending, Tag: "work"})
	if err != nil {
		t.Fatalf("ListTaskMetadata: %v", err)
	}
}

func TestClearToken_MakesClientUnauthenticated(t *testing.T) {
	client := NewClient("http://localhost:1")
	client.SetToken("tok")
	client.ClearToken()

	err := client.PatchTaskMetadata(context.Background(), 1, task.MetadataPatch{})
	if !IsAuthError(err) {
		t.Fatalf("expected AuthError after ClearToken, got %v", err)
	}
}
