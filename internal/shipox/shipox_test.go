package shipox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testAuthPath      = "/api/v1/authenticate"
	testMarketplaceID = "307345429"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// fakeUpstream is an httptest server standing in for the provider.
// Handlers may be swapped per test; call counters are safe for concurrent use.
type fakeUpstream struct {
	server    *httptest.Server
	authCalls atomic.Int32
	apiCalls  atomic.Int32
	tokenSeq  atomic.Int32

	mu          sync.RWMutex
	authHandler http.HandlerFunc
	apiHandler  http.HandlerFunc
}

func (f *fakeUpstream) handleAuth(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHandler = h
}

func (f *fakeUpstream) handleAPI(h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiHandler = h
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.authHandler = func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenSeq.Add(1)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"id_token": tokenName(n),
			},
		})
	}
	f.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": []interface{}{}})
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.RLock()
		auth, api := f.authHandler, f.apiHandler
		f.mu.RUnlock()

		if r.URL.Path == testAuthPath {
			f.authCalls.Add(1)
			auth(w, r)
			return
		}
		f.apiCalls.Add(1)
		api(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func tokenName(n int32) string {
	return "token-" + strconv.Itoa(int(n))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type testStack struct {
	upstream  *fakeUpstream
	clock     *MockClock
	store     *TokenStore
	refresher *Refresher
	executor  *Executor
	client    *Client
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	upstream := newFakeUpstream(t)
	clock := &MockClock{CurrentTime: testNow}
	store := NewTokenStore()

	refresher := NewRefresher(RefresherConfig{
		AuthURL:        upstream.server.URL + testAuthPath,
		Credentials:    Credentials{Username: "calc@example.com", Password: "secret"},
		TokenTTL:       6 * time.Hour,
		RefreshMargin:  5 * time.Minute,
		RequestTimeout: 5 * time.Second,
	}, store, upstream.server.Client(), clock, nil)

	executor := NewExecutor(ExecutorConfig{MarketplaceID: testMarketplaceID}, refresher, upstream.server.Client(), nil)

	client := NewClient(ClientConfig{
		GatewayURL: upstream.server.URL,
		CountryID:  "234",
		CustomerID: "2484820352",
	}, executor, nil)

	return &testStack{
		upstream:  upstream,
		clock:     clock,
		store:     store,
		refresher: refresher,
		executor:  executor,
		client:    client,
	}
}
