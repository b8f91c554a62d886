// Package httputil abstracts the outbound HTTP client so the model agent
// can be tested with canned responses.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the request surface the agent client depends on.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c; a nil c falls back to http.DefaultClient.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// MockHTTPClient replays a queue of canned responses and records every
// request it sees.
type MockHTTPClient struct {
	mu        sync.Mutex
	requests  []*http.Request
	responses []mockResponse
	next      int
}

type mockResponse struct {
	status int
	body   string
	err    error
}

// NewMockHTTPClient returns an empty mock. A Do call past the end of the
// queue returns 200 with an empty body.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a response. Returns the mock for chaining.
func (m *MockHTTPClient) AddResponse(status int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{status: status, body: body})
	return m
}

// AddErrorResponse queues a transport-level error.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// Do records req and returns the next queued response.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.next >= len(m.responses) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString("")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	resp := m.responses[m.next]
	m.next++
	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// GetRequest returns the nth recorded request, or nil.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.requests) {
		return nil
	}
	return m.requests[n]
}

// RequestCount returns how many requests were recorded.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
