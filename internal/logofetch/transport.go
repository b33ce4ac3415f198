package logofetch

import (
	"context"

	"github.com/coinviewapp/coinview-go/internal/httpclient"
)

// HTTPTransport adapts the shared HTTP client to the Transport interface.
// The live priority hint is read when the request is issued and forwarded
// as the fetch-priority header.
type HTTPTransport struct {
	client *httpclient.Client
}

// NewHTTPTransport wraps an HTTP client as a Transport.
func NewHTTPTransport(client *httpclient.Client) *HTTPTransport {
	return &HTTPTransport{client: client}
}

// FetchBytes issues one abortable GET for url.
func (t *HTTPTransport) FetchBytes(ctx context.Context, url string, hint *PriorityHint) ([]byte, error) {
	priority := ""
	if hint != nil {
		priority = hint.Load().String()
	}
	return t.client.GetBytes(ctx, url, priority)
}
