package highlevel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:   srv.URL + "/v1",
		APIKey:    "hl-key",
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	})
}

func TestListPipelinesSendsBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pipelines/", r.URL.Path)
		assert.Equal(t, "Bearer hl-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"pipelines":[{"id":"p1","name":"Gym","stages":[{"id":"s1","name":"New Client - Challenger"}]}]}`))
	})

	pipelines, err := client.ListPipelines(context.Background())
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "p1", pipelines[0].ID)
	assert.True(t, pipelines[0].HasStage("New Client - Challenger"))
}

func TestListOpportunitiesFollowsCursor(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pipelines/p1/opportunities", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			assert.Empty(t, r.URL.Query().Get("startAfterId"))
			w.Write([]byte(`{"opportunities":[{"id":"o1","status":"open","pipelineStageId":"s1","contact":{"id":"c1","name":"Jane Doe"}}],
				"meta":{"nextPageUrl":"https://next","startAfterId":"o1","startAfter":1710000000000}}`))
		default:
			assert.Equal(t, "o1", r.URL.Query().Get("startAfterId"))
			assert.Equal(t, "1710000000000", r.URL.Query().Get("startAfter"))
			w.Write([]byte(`{"opportunities":[{"id":"o2","status":"lost","pipelineStageId":"s2","contact":{"id":"c2"}}],"meta":{"nextPageUrl":null}}`))
		}
	})

	opps, err := client.ListOpportunities(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, opps, 2)
	assert.Equal(t, "c1", opps[0].Contact.ID)
	assert.Equal(t, "Jane", opps[0].Contact.FirstName)
	assert.Equal(t, "Doe", opps[0].Contact.LastName)
	assert.Equal(t, "s1", opps[0].StageID)
	assert.Equal(t, "lost", opps[1].Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListOpportunitiesStopsOnRepeatedCursor(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"opportunities":[],"meta":{"nextPageUrl":"x","startAfterId":"same","startAfter":1}}`))
	})

	_, err := client.ListOpportunities(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetContactUnwrapsEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/contacts/abc123", r.URL.Path)
		w.Write([]byte(`{"contact":{"id":"abc123","firstName":"Jane","lastName":"Doe","email":"jane@gym.com","dateAdded":"2025-02-01T12:00:00.000Z"}}`))
	})

	contact, err := client.GetContact(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Jane", contact.FirstName)
	assert.Equal(t, "jane@gym.com", contact.Email)
	assert.Equal(t, "2025-02-01T12:00:00.000Z", contact.DateAdded)
}

func TestListUsersReadsRole(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/location", r.URL.Path)
		w.Write([]byte(`{"users":[{"id":"u1","name":"Coach Carter","email":"coach@gym.com","roles":{"type":"account","role":"admin"}}]}`))
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Coach", users[0].FirstName)
	assert.Equal(t, "Carter", users[0].LastName)
	assert.Equal(t, "admin", users[0].Role)
}

func TestRetriesOnServerErrorsAndRateLimit(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"users":[]}`))
		}
	})

	_, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	})

	_, err := client.ListPipelines(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetContact(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(Options{})
	_, err := client.ListUsers(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRetryDelayHonorsRetryAfterAndCap(t *testing.T) {
	c := NewClient(Options{APIKey: "k"})
	assert.Equal(t, 10*time.Second, c.retryDelay(1, ""))
	assert.Equal(t, 20*time.Second, c.retryDelay(2, ""))
	assert.Equal(t, 40*time.Second, c.retryDelay(3, ""))
	assert.Equal(t, 40*time.Second, c.retryDelay(5, ""))
	assert.Equal(t, 15*time.Second, c.retryDelay(1, "15"))
	assert.Equal(t, 40*time.Second, c.retryDelay(1, "120"))
}
