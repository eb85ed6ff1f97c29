package shipox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_ExchangesCredentials(t *testing.T) {
	s := newTestStack(t)
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json;charset=utf-8", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "calc@example.com", req["username"])
		assert.Equal(t, "secret", req["password"])
		assert.Equal(t, false, req["remember_me"])

		writeJSON(w, http.StatusOK, map[string]interface{}{"id_token": "abc"})
	})

	token, err := s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	stored := s.store.Snapshot()
	assert.Equal(t, "abc", stored.Value)
	assert.Equal(t, testNow.Add(6*time.Hour), stored.ExpiresAt)
}

func TestRefresher_ConcurrentCallersShareOneExchange(t *testing.T) {
	s := newTestStack(t)
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		s.upstream.tokenSeq.Add(1)
		time.Sleep(150 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{"data": map[string]interface{}{"id_token": "shared"}},
		})
	})

	const callers = 25
	var wg sync.WaitGroup
	start := make(chan struct{})
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tokens[i], errs[i] = s.refresher.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), s.upstream.authCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", tokens[i])
	}
}

func TestRefresher_ConcurrentCallersShareFailure(t *testing.T) {
	s := newTestStack(t)
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	})

	const callers = 10
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.refresher.Token(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), s.upstream.authCalls.Load())
	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], ErrAuthenticationFailed)
		assert.Same(t, errs[0], errs[i], "all waiters should observe the same failure")
	}
}

func TestRefresher_ReusesValidToken(t *testing.T) {
	s := newTestStack(t)
	s.store.Set("cached", testNow.Add(time.Hour))

	token, err := s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token)
	assert.Equal(t, int32(0), s.upstream.authCalls.Load())
}

func TestRefresher_SafetyMargin(t *testing.T) {
	tests := []struct {
		name        string
		untilExpiry time.Duration
		wantRefresh bool
	}{
		{"well inside window", 6 * time.Hour, false},
		{"just before margin", 5*time.Minute + time.Second, false},
		{"exactly at margin", 5 * time.Minute, true},
		{"inside margin", time.Minute, true},
		{"already expired", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			s.store.Set("old", testNow.Add(tt.untilExpiry))

			token, err := s.refresher.Token(context.Background())
			require.NoError(t, err)

			if tt.wantRefresh {
				assert.Equal(t, int32(1), s.upstream.authCalls.Load())
				assert.Equal(t, "token-1", token)
			} else {
				assert.Equal(t, int32(0), s.upstream.authCalls.Load())
				assert.Equal(t, "old", token)
			}
		})
	}
}

func TestRefresher_ExpiresAfterClockAdvance(t *testing.T) {
	s := newTestStack(t)

	_, err := s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), s.upstream.authCalls.Load())

	s.clock.Advance(5*time.Hour + 54*time.Minute)
	_, err = s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), s.upstream.authCalls.Load())

	s.clock.Advance(time.Minute)
	token, err := s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), s.upstream.authCalls.Load())
	assert.Equal(t, "token-2", token)
}

func TestRefresher_AuthenticationFailed(t *testing.T) {
	s := newTestStack(t)
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := s.refresher.Token(context.Background())
	require.Error(t, err)

	var authErr *AuthenticationFailedError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "Invalid credentials")
	assert.Equal(t, "", s.store.Snapshot().Value)
}

func TestRefresher_TokenNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown shape", `{"data":{"jwt":"x"}}`},
		{"empty token", `{"id_token":""}`},
		{"not json", `<html>ok</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStack(t)
			s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			})

			_, err := s.refresher.Token(context.Background())
			assert.ErrorIs(t, err, ErrTokenNotFound)
		})
	}
}

func TestRefresher_FailureDoesNotBlockNextAttempt(t *testing.T) {
	s := newTestStack(t)
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.refresher.Token(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "recovered"})
	})

	token, err := s.refresher.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "recovered", token)
	assert.Equal(t, int32(2), s.upstream.authCalls.Load())
}

func TestRefresher_CallerCancellationLeavesExchangeRunning(t *testing.T) {
	s := newTestStack(t)
	release := make(chan struct{})
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"token": "late"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.refresher.Token(ctx)
		done <- err
	}()

	// Give the first caller time to start the exchange
	require.Eventually(t, func() bool { return s.upstream.authCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return s.store.Snapshot().Value == "late" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), s.upstream.authCalls.Load())
}

func TestRefresher_TransportError(t *testing.T) {
	s := newTestStack(t)
	s.upstream.server.Close()

	_, err := s.refresher.Token(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestRefresher_Status(t *testing.T) {
	s := newTestStack(t)
	assert.Equal(t, TokenStatus{State: TokenStateNotCached}, s.refresher.Status())

	_, err := s.refresher.Token(context.Background())
	require.NoError(t, err)

	status := s.refresher.Status()
	assert.Equal(t, TokenStateValid, status.State)
	assert.Equal(t, testNow.Add(6*time.Hour), status.ExpiresAt)
	assert.Equal(t, 6*time.Hour, status.ExpiresIn)

	s.clock.Advance(6*time.Hour - time.Minute)
	status = s.refresher.Status()
	assert.Equal(t, TokenStateExpiring, status.State)
	assert.Equal(t, time.Minute, status.ExpiresIn)

	s.clock.Advance(time.Hour)
	assert.Equal(t, time.Duration(0), s.refresher.Status().ExpiresIn)
}

func TestRefresher_ForceRefresh(t *testing.T) {
	s := newTestStack(t)
	s.store.Set("still-good", testNow.Add(time.Hour))

	status, err := s.refresher.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TokenStateValid, status.State)
	assert.Equal(t, int32(1), s.upstream.authCalls.Load())
	assert.Equal(t, "token-1", s.store.Snapshot().Value)
}

func TestRefresher_ForceRefreshFailureLeavesStoreEmpty(t *testing.T) {
	s := newTestStack(t)
	s.store.Set("still-good", testNow.Add(time.Hour))
	s.upstream.handleAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := s.refresher.ForceRefresh(context.Background())
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, TokenStateNotCached, s.refresher.Status().State)
}
