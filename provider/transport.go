package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"thoughtprint/model"
)

// ProxyFunc resolves the proxy for an outbound request. It has the shape of
// http.Transport.Proxy; a nil URL means a direct connection.
type ProxyFunc func(*http.Request) (*url.URL, error)

// bypassesProxy reports whether baseURL points at a loopback endpoint that
// must never be proxied.
func bypassesProxy(baseURL string) bool {
	return strings.Contains(baseURL, "localhost") || strings.Contains(baseURL, "127.0.0.1")
}

// newTransport returns a transport dedicated to one call against baseURL.
func newTransport(baseURL string, proxy ProxyFunc) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = proxy
	if bypassesProxy(baseURL) {
		t.Proxy = nil
	}
	return t
}

// observingTransport remembers whether any response reached the client and
// with which status, so a failed call can be told apart as "never got a
// response" versus "got a 2xx with an unusable body".
type observingTransport struct {
	base http.RoundTripper

	mu       sync.Mutex
	status   int
	received bool
}

func (t *observingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err == nil && resp != nil {
		t.mu.Lock()
		t.status = resp.StatusCode
		t.received = true
		t.mu.Unlock()
	}
	return resp, err
}

func (t *observingTransport) CloseIdleConnections() {
	if closer, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

func (t *observingTransport) lastStatus() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.received
}

// classify turns a backend failure into a typed gateway error.
func classify(err error, obs *observingTransport, action string) error {
	if e, ok := model.AsError(err); ok {
		return e
	}
	if isTimeout(err) {
		return model.Wrap(model.KindNetwork, err, "%s timed out", action)
	}

	status, received := obs.lastStatus()
	switch {
	case !received:
		return model.Wrap(model.KindNetwork, err, "%s failed", action)
	case status < 200 || status > 299:
		return model.Wrap(model.KindNetwork, err, "%s returned HTTP %d", action, status)
	default:
		return model.Wrap(model.KindMalformedResponse, err, "%s returned an unparseable body", action)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
