package auth_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MaxIvlevich/labyrinth-game/go/clients"
	"github.com/MaxIvlevich/labyrinth-game/go/internal/auth"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestLoginMapsTokenResponse(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LoginEndpoint || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.UsernameOrEmail != "ariadne" || req.Password != "thread" {
			t.Errorf("unexpected login body: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "a", RefreshToken: "r", UserID: "u-1", Username: "ariadne"})
	})

	creds, err := c.Login(context.Background(), "ariadne", "thread")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	want := auth.Credentials{AccessToken: "a", RefreshToken: "r", SubjectID: "u-1", DisplayName: "ariadne"}
	if creds != want {
		t.Fatalf("expected %+v, got %+v", want, creds)
	}
}

func TestRefreshUnauthorizedIsAuthError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Refresh token was expired"}`))
	})

	_, err := c.Refresh(context.Background(), "stale")
	if err == nil {
		t.Fatal("expected error")
	}
	if !clients.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var se *clients.StatusError
	if !errors.As(err, &se) || se.Message != "Refresh token was expired" {
		t.Fatalf("expected server message in StatusError, got %v", err)
	}
}

func TestRefreshRejectsIncompletePair(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "a"})
	})

	if _, err := c.Refresh(context.Background(), "r"); !errors.Is(err, auth.ErrIncompleteCredentials) {
		t.Fatalf("expected ErrIncompleteCredentials, got %v", err)
	}
}

func TestLogoutNoContent(t *testing.T) {
	var got refreshRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Logout(context.Background(), "r-9"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if got.RefreshToken != "r-9" {
		t.Fatalf("expected refresh token in body, got %+v", got)
	}
}

func TestServerErrorIsNotAuthError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Signup(context.Background(), "x", "x@example.com", "pw")
	if err == nil {
		t.Fatal("expected error")
	}
	if clients.IsAuthError(err) {
		t.Fatal("500 must not be classified as an auth error")
	}
}
