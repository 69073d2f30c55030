package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Routes served by MockTapServer.
const (
	RouteToken        = "token"
	RouteBookies      = "bookies"
	RouteSports       = "sports"
	RouteCompetitions = "competitions"
	RouteBySite       = "bysite"
	RouteCountry      = "country"
)

type mockResponse struct {
	status int
	body   string
}

// MockTapServer provides a configurable mock of the upstream API for testing.
// Each route answers with the response configured for it and counts the
// requests it receives.
type MockTapServer struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]mockResponse
	requests  map[string][]*url.URL
}

// SetupMockTapServer creates a mock upstream that issues the token "T1" for an
// hour and answers every resource route with an empty list. The server is
// closed when the test completes.
func SetupMockTapServer(t *testing.T) *MockTapServer {
	t.Helper()

	mock := &MockTapServer{
		responses: map[string]mockResponse{},
		requests:  map[string][]*url.URL{},
	}
	mock.SetToken("T1", 3600)
	for _, route := range []string{RouteBookies, RouteSports, RouteCompetitions, RouteBySite, RouteCountry} {
		mock.Respond(route, http.StatusOK, "[]")
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /oauth/v2/token", mock.handle(RouteToken))
	router.HandleFunc("GET /api/blocks-bookies/{category}/{domain}/listado-bonos-bookies.json/", mock.handle(RouteBookies))
	router.HandleFunc("GET /api/deporte/listado-visible-blogs.json/", mock.handle(RouteSports))
	router.HandleFunc("GET /api/competicion/listado.json/", mock.handle(RouteCompetitions))
	router.HandleFunc("GET /api/blocks-bookies/{category}/{site}/listado.json/{ip}/", mock.handle(RouteBySite))
	router.HandleFunc("GET /api/geoip/country-by-ip.json/{ip}/", mock.handle(RouteCountry))

	mock.Server = httptest.NewServer(router)
	t.Cleanup(mock.Close)

	return mock
}

func (m *MockTapServer) handle(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		u := *r.URL
		m.requests[route] = append(m.requests[route], &u)
		resp := m.responses[route]
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}
}

// URL is the base URL of the mock.
func (m *MockTapServer) URL() string {
	return m.Server.URL
}

// SetToken configures a successful token exchange.
func (m *MockTapServer) SetToken(accessToken string, expiresIn int) {
	m.RespondJSON(RouteToken, http.StatusOK, map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	})
}

// Respond sets the raw response of a route.
func (m *MockTapServer) Respond(route string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses[route] = mockResponse{status: status, body: body}
}

// RespondJSON sets the response of a route to the marshalled payload.
func (m *MockTapServer) RespondJSON(route string, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal JSON: %v", err))
	}
	m.Respond(route, status, string(data))
}

// RequestCount is the number of requests received by a route.
func (m *MockTapServer) RequestCount(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests[route])
}

// TotalRequests is the number of requests received by every route.
func (m *MockTapServer) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, reqs := range m.requests {
		total += len(reqs)
	}
	return total
}

// LastRequest returns the URL of the most recent request to a route, or nil.
func (m *MockTapServer) LastRequest(route string) *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := m.requests[route]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

// Close shuts down the mock server.
func (m *MockTapServer) Close() {
	m.Server.Close()
}

