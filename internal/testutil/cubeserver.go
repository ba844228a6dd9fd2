// Package testutil provides a scripted fake semantic-layer server for use
// in tests across the codebase, in the spirit of net/http/httptest.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Step is one scripted response from the fake server.
type Step struct {
	Status     int
	Body       string
	RetryAfter int // seconds; emitted as a Retry-After header when > 0
}

// ContinueWait is a scripted "not ready yet" response.
func ContinueWait() Step {
	return Step{Status: http.StatusOK, Body: `{"error": "Continue wait"}`}
}

// ContinueWaitHint is a "not ready yet" response carrying a wait hint.
func ContinueWaitHint(seconds int) Step {
	return Step{Status: http.StatusOK, Body: `{"error": "Continue wait"}`, RetryAfter: seconds}
}

// Ready is a scripted success response with the given JSON body.
func Ready(body string) Step {
	return Step{Status: http.StatusOK, Body: body}
}

// RateLimited is a scripted 429 with an optional Retry-After hint.
func RateLimited(retryAfterSeconds int) Step {
	return Step{Status: http.StatusTooManyRequests, Body: `{"error": "Too many requests"}`, RetryAfter: retryAfterSeconds}
}

// RecordedRequest captures one request the fake server received.
type RecordedRequest struct {
	Header http.Header
	Body   []byte
}

// CubeServer is an httptest server that plays a response script for the
// load endpoint and records everything it receives.
type CubeServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	script   []Step
	requests []RecordedRequest
}

// NewCubeServer starts a fake server that answers the load endpoint with
// the scripted steps in order. When the script runs out, the last step
// repeats. The server is shut down via t.Cleanup.
func NewCubeServer(t *testing.T, script ...Step) *CubeServer {
	t.Helper()
	s := &CubeServer{script: script}

	r := chi.NewRouter()
	r.Post("/cubejs-api/v1/load", s.handleLoad)
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *CubeServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{Header: r.Header.Clone(), Body: body})
	if len(s.script) == 0 {
		s.mu.Unlock()
		http.Error(w, "no scripted response", http.StatusInternalServerError)
		return
	}
	idx := len(s.requests) - 1
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	step := s.script[idx]
	s.mu.Unlock()

	if step.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(step.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(step.Status)
	_, _ = w.Write([]byte(step.Body))
}

// URL returns the server's base URL.
func (s *CubeServer) URL() string { return s.srv.URL }

// Requests returns a copy of the recorded requests.
func (s *CubeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many load requests the server has seen.
func (s *CubeServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
