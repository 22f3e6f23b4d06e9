package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reftourney/internal/auth"
	"reftourney/internal/store"
	"reftourney/internal/tournament"
)

const testToken = "operator-token"

func newTestServer(t *testing.T) (*httptest.Server, *tournament.Service) {
	t.Helper()
	svc := tournament.NewService(store.NewMemory(), nil, tournament.Config{
		Start:       time.Now().Add(-time.Hour),
		TokenSecret: []byte("api-test"),
	}, nil)
	srv := httptest.NewServer(New(nil, auth.NewTokenVerifier(testToken), svc).Handler())
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}

func TestV1RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, http.MethodGet, "/v1/leaderboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.ErrMissingToken.Error(), body["error"])

	resp, _ = do(t, srv, http.MethodGet, "/v1/leaderboard", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActivateAndQuery(t *testing.T) {
	srv, svc := newTestServer(t)

	resp, body := do(t, srv, http.MethodPost, "/v1/activations", testToken, map[string]string{"user_id": "A", "display_name": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", body["status"])
	assert.EqualValues(t, 1, body["rank"])

	info, err := svc.ReferralInfo(context.Background(), "A")
	require.NoError(t, err)
	resp, body = do(t, srv, http.MethodPost, "/v1/activations", testToken, map[string]string{
		"user_id": "E",
		"payload": tournament.Payload(info.Participant.ReferralToken),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	referral := body["referral"].(map[string]any)
	assert.Equal(t, true, referral["applied"])
	assert.Equal(t, "A", referral["referrer_id"])

	resp, body = do(t, srv, http.MethodGet, "/v1/participants/A", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	participant := body["participant"].(map[string]any)
	assert.EqualValues(t, 1, participant["referral_count"])
	assert.Equal(t, info.Link, body["link"])

	resp, body = do(t, srv, http.MethodGet, "/v1/participants/E/rank", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["rank"])

	require.NoError(t, svc.Board().Refresh(context.Background()))
	resp, body = do(t, srv, http.MethodGet, "/v1/leaderboard", testToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := body["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].(map[string]any)["user_id"])
}

func TestDomainErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/v1/participants/ghost", testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/v1/participants/ghost/rank", testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, srv, http.MethodPost, "/v1/activations", testToken, map[string]string{"user_id": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, tournament.ErrInvalidIdentifier.Error(), body["error"])

	resp, _ = do(t, srv, http.MethodPost, "/v1/activations", testToken, map[string]string{"user": "A"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
