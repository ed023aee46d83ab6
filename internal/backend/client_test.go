package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raitha-mitra/inbox-sync/internal/model"
	"github.com/raitha-mitra/inbox-sync/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:            server.URL,
		Timeout:            2 * time.Second,
		SessionCookieName:  "session",
		SessionCookie:      "abc123",
		BreakerMaxFailures: 100,
	}, logger.NewNop())
	require.NoError(t, err)
	return client
}

func TestInboxDecodesConversations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/messages/inbox", r.URL.Path)

		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "abc123", cookie.Value)

		_, _ = w.Write([]byte(`{"conversations":[{"other_user_id":5,"other_user_name":"Asha","last_message":"hi","last_message_time":"2024-01-01T10:00:00Z","unread_count":2}],"unread_count":2,"count":1,"success":true}`))
	})

	resp, err := client.Inbox(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, int64(5), resp.Conversations[0].OtherUserID)
	assert.Equal(t, "Asha", resp.Conversations[0].OtherUserName)
	assert.Equal(t, 2, resp.UnreadCount)
}

func TestThreadUsesUserPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/thread/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"messages":[{"id":9,"message_text":"hi","created_at":"2024-01-01 10:00:00","is_sent":false,"is_read":true}]}`))
	})

	resp, err := client.Thread(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, int64(9), resp.Messages[0].ID)
	assert.False(t, resp.Messages[0].IsSent)
}

func TestSendPostsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var req model.SendMessageRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, int64(5), req.ReceiverID)
		assert.Equal(t, "hello", req.MessageText)

		_, _ = w.Write([]byte(`{"message_id":77,"message":"Message sent successfully","success":true}`))
	})

	resp, err := client.Send(context.Background(), &model.SendMessageRequest{ReceiverID: 5, MessageText: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(77), resp.MessageID)
}

func TestSendErrorIsVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"User blocked you"}`))
	})

	_, err := client.Send(context.Background(), &model.SendMessageRequest{ReceiverID: 5, MessageText: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "User blocked you", UserMessage(err, "Failed to send message"))
}

func TestNonJSONErrorFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	err := client.Block(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, "Failed to block user", UserMessage(err, "Failed to block user"))
	assert.False(t, IsApplicationError(err))
}

func TestMalformedSuccessBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"conversations":`))
	})

	_, err := client.Inbox(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, "Failed to load messages", UserMessage(err, "Failed to load messages"))
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := New(Config{BaseURL: url, Timeout: time.Second}, logger.NewNop())
	require.NoError(t, err)

	_, err = client.Inbox(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Not authenticated"}`))
	})

	_, err := client.Inbox(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Not authenticated", UserMessage(err, "fallback"))
}

func TestRateLimitMessage(t *testing.T) {
	reset := time.Date(2024, 1, 1, 15, 4, 5, 0, time.Local)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(model.ErrorResponse{
			Error:             "Rate limit exceeded.",
			RateLimitExceeded: true,
			ResetTime:         reset.Unix(),
		})
	})

	_, err := client.SearchUsers(context.Background(), "as")
	require.Error(t, err)

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, reset.Unix(), rl.ResetAt.Unix())
	assert.Equal(t, "Rate limit exceeded. Please try again after 3:04:05 PM.", UserMessage(err, "x"))
}

func TestSearchAndCountsQueryParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/friends/search":
			assert.Equal(t, "as ha", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"users":[{"id":5,"name":"Asha","location":"Mysuru"}]}`))
		case "/api/notifications/counts":
			assert.Equal(t, "42", r.URL.Query().Get("user_id"))
			_, _ = w.Write([]byte(`{"unread_messages":3,"friend_requests":1}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	users, err := client.SearchUsers(context.Background(), "as ha")
	require.NoError(t, err)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "Mysuru", users.Users[0].Location)

	counts, err := client.NotificationCounts(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Total())
}

func TestBreakerOpensOnRepeatedServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := New(Config{
		BaseURL:            server.URL,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
	}, logger.NewNop())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := client.Inbox(context.Background())
		require.Error(t, err)
	}
	assert.True(t, client.BreakerOpen())

	_, err = client.Inbox(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestApplicationErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Message cannot be empty"}`))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL, BreakerMaxFailures: 1}, logger.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Send(context.Background(), &model.SendMessageRequest{ReceiverID: 1})
		require.Error(t, err)
	}
	assert.False(t, client.BreakerOpen())
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/relative"}, logger.NewNop())
	assert.Error(t, err)
}
