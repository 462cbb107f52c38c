package flightengine

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client for testing the adapter without a
// server. It records every request and answers from a configurable handler,
// falling back to canned responses keyed by kernel name.
type MockClient struct {
	mu        sync.RWMutex
	connected bool
	requests  []*Request
	responses map[string]*Response

	// Handler, when set, computes the response instead of the canned map.
	Handler func(req *Request) (*Response, error)
}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string]*Response),
	}
}

// Connect simulates connection
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Close simulates disconnection
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// SetResponse installs the canned response for a kernel.
func (m *MockClient) SetResponse(kernel string, resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[kernel] = resp
}

// Invoke records the request and serves the configured response.
func (m *MockClient) Invoke(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, fmt.Errorf("client not connected")
	}
	m.requests = append(m.requests, req)

	if m.Handler != nil {
		return m.Handler(req)
	}
	if resp, ok := m.responses[req.Kernel]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("no response configured for kernel %q", req.Kernel)
}

// Requests returns the recorded requests (for testing).
func (m *MockClient) Requests() []*Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Reset clears recorded requests and canned responses.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responses = make(map[string]*Response)
}
