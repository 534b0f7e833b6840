// Copyright (c) 2026 FarmMarket. All rights reserved.
// Author: dev@farmmarket.az

package gotrue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmmarket/api/internal/identity"
	"github.com/farmmarket/api/internal/platform/apperr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signTestToken(t *testing.T, subject, email string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"user_metadata": map[string]any{
			"full_name": "Test User",
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

type recordedEvent struct {
	event   identity.AuthEvent
	session *identity.Session
}

func TestClient_SignInWithPassword(t *testing.T) {
	t.Run("applies session and notifies subscribers", func(t *testing.T) {
		accessToken := signTestToken(t, "user-1", "leyla@example.com")

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/token", r.URL.Path)
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "test-key", r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "leyla@example.com", body["email"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  accessToken,
				"refresh_token": "refresh-1",
				"token_type":    "bearer",
				"expires_in":    3600,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())

		var events []recordedEvent
		sub := client.OnSessionChange(func(event identity.AuthEvent, session *identity.Session) {
			events = append(events, recordedEvent{event, session})
		})
		defer sub.Unsubscribe()

		err := client.SignInWithPassword(context.Background(), "leyla@example.com", "secret123")
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, identity.EventSignedIn, events[0].event)
		require.NotNil(t, events[0].session)
		require.NotNil(t, events[0].session.User)
		assert.Equal(t, "user-1", events[0].session.User.ID)
		assert.Equal(t, "leyla@example.com", events[0].session.User.Email)

		current, err := client.CurrentSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "refresh-1", current.RefreshToken)
		assert.False(t, current.Expired())
	})

	t.Run("preserves the provider error message verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error_description": "Invalid login credentials",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())

		err := client.SignInWithPassword(context.Background(), "leyla@example.com", "wrong")
		require.Error(t, err)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "PROVIDER_ERROR", ae.Code)
		assert.Equal(t, "Invalid login credentials", ae.Message)

		// The failed attempt must not leave a session behind.
		current, err := client.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, current)
	})
}

func TestClient_SignUp(t *testing.T) {
	t.Run("returns the bare user when confirmation is pending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/signup", r.URL.Path)
			assert.Equal(t, "https://farmmarket.az/", r.URL.Query().Get("redirect_to"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			data, ok := body["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "Rashid Aliyev", data["full_name"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    "user-7",
				"email": "rashid@example.com",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())

		var events []recordedEvent
		sub := client.OnSessionChange(func(event identity.AuthEvent, session *identity.Session) {
			events = append(events, recordedEvent{event, session})
		})
		defer sub.Unsubscribe()

		user, err := client.SignUp(context.Background(), identity.SignUpInput{
			Email:      "rashid@example.com",
			Password:   "secret123",
			RedirectTo: "https://farmmarket.az/",
			Data:       map[string]any{"full_name": "Rashid Aliyev"},
		})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-7", user.ID)

		// No session was issued, so nothing is announced.
		assert.Empty(t, events)
	})

	t.Run("applies the session on auto-confirm deployments", func(t *testing.T) {
		accessToken := signTestToken(t, "user-8", "aysel@example.com")

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  accessToken,
				"refresh_token": "refresh-8",
				"token_type":    "bearer",
				"expires_in":    3600,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())

		var events []recordedEvent
		sub := client.OnSessionChange(func(event identity.AuthEvent, session *identity.Session) {
			events = append(events, recordedEvent{event, session})
		})
		defer sub.Unsubscribe()

		user, err := client.SignUp(context.Background(), identity.SignUpInput{
			Email:    "aysel@example.com",
			Password: "secret123",
		})
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-8", user.ID)

		require.Len(t, events, 1)
		assert.Equal(t, identity.EventSignedIn, events[0].event)
	})

	t.Run("surfaces duplicate-account errors verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"msg": "User already registered",
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())

		_, err := client.SignUp(context.Background(), identity.SignUpInput{
			Email:    "rashid@example.com",
			Password: "secret123",
		})
		require.Error(t, err)

		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, "User already registered", ae.Message)
	})
}

func TestClient_SignOut(t *testing.T) {
	t.Run("clears local state even when the remote call fails", func(t *testing.T) {
		accessToken := signTestToken(t, "user-1", "leyla@example.com")

		var logoutCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/token":
				_ = json.NewEncoder(w).Encode(map[string]any{
					"access_token":  accessToken,
					"refresh_token": "refresh-1",
					"token_type":    "bearer",
					"expires_in":    3600,
				})
			case "/logout":
				logoutCalls++
				assert.Equal(t, "Bearer "+accessToken, r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"msg": "boom"})
			}
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-key", nil, discardLogger())
		require.NoError(t, client.SignInWithPassword(context.Background(), "leyla@example.com", "secret123"))

		var events []recordedEvent
		sub := client.OnSessionChange(func(event identity.AuthEvent, session *identity.Session) {
			events = append(events, recordedEvent{event, session})
		})
		defer sub.Unsubscribe()

		err := client.SignOut(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, logoutCalls)

		require.Len(t, events, 1)
		assert.Equal(t, identity.EventSignedOut, events[0].event)
		assert.Nil(t, events[0].session)

		current, err := client.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("is a no-op without a session", func(t *testing.T) {
		client := NewClient("http://identity.invalid", "test-key", nil, discardLogger())

		err := client.SignOut(context.Background())
		assert.NoError(t, err)
	})
}

func TestClient_CurrentSession(t *testing.T) {
	t.Run("returns nil when no session exists", func(t *testing.T) {
		client := NewClient("http://identity.invalid", "test-key", nil, discardLogger())

		session, err := client.CurrentSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestUserFromToken(t *testing.T) {
	t.Run("derives the user from claims", func(t *testing.T) {
		token := signTestToken(t, "user-9", "murad@example.com")

		user := userFromToken(token)
		require.NotNil(t, user)
		assert.Equal(t, "user-9", user.ID)
		assert.Equal(t, "murad@example.com", user.Email)
		assert.Equal(t, "Test User", user.Metadata["full_name"])
	})

	t.Run("returns nil for garbage input", func(t *testing.T) {
		assert.Nil(t, userFromToken("not-a-token"))
	})
}

func TestHub_Unsubscribe(t *testing.T) {
	h := newHub()

	var calls int
	sub := h.subscribe(func(identity.AuthEvent, *identity.Session) { calls++ })

	h.emit(identity.EventSignedIn, &identity.Session{ExpiresAt: time.Now().Add(time.Hour)})
	assert.Equal(t, 1, calls)

	sub.Unsubscribe()
	sub.Unsubscribe()

	h.emit(identity.EventSignedOut, nil)
	assert.Equal(t, 1, calls)
}
