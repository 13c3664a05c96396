package rpcclient

import (
	"sync"
	"time"
)

// Provider lazily creates one shared Client for the process. The client
// holds no per-request state, so sharing it is safe.
type Provider struct {
	endpoint string
	timeout  time.Duration

	once   sync.Once
	client *Client
}

// NewProvider returns a provider for the given endpoint. No connection is
// made until Get is first called.
func NewProvider(endpoint string, timeout time.Duration) *Provider {
	return &Provider{endpoint: endpoint, timeout: timeout}
}

// Get returns the shared client, creating it on first use.
func (p *Provider) Get() *Client {
	p.once.Do(func() {
		p.client = NewWithTimeout(p.endpoint, p.timeout)
	})
	return p.client
}

// Endpoint returns the configured URL without creating the client.
func (p *Provider) Endpoint() string {
	return p.endpoint
}
