package mirror

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// HTTPFetcher abstracts HTTP calls for testability
type HTTPFetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPFetcher wraps http.Client for production use
type RealHTTPFetcher struct {
	client *http.Client
}

// NewRealHTTPFetcher creates a production HTTP fetcher. A nil client gets a
// TLS 1.2+ transport; deadlines come from the request context.
func NewRealHTTPFetcher(client *http.Client) HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		}
	}
	return &RealHTTPFetcher{client: client}
}

func (f *RealHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	return f.client.Do(req)
}

// MockResponse is one scripted reply of MockHTTPFetcher.
type MockResponse struct {
	StatusCode int
	Body       string
	Header     http.Header
	Err        error
}

// MockHTTPFetcher replays scripted responses keyed by method and URL. Each
// route is a queue: replies are consumed in order and the last one repeats.
// Unknown routes answer 404.
type MockHTTPFetcher struct {
	mu     sync.Mutex
	routes map[string][]MockResponse
	calls  []string
}

// NewMockHTTPFetcher creates a mock HTTP fetcher
func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{routes: make(map[string][]MockResponse)}
}

func routeKey(method, url string) string {
	return method + " " + url
}

// On appends replies for method+URL.
func (m *MockHTTPFetcher) On(method, url string, replies ...MockResponse) *MockHTTPFetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := routeKey(method, url)
	m.routes[key] = append(m.routes[key], replies...)
	return m
}

// AddResponse registers a GET reply for a URL
func (m *MockHTTPFetcher) AddResponse(url string, statusCode int, body string) *MockHTTPFetcher {
	return m.On(http.MethodGet, url, MockResponse{StatusCode: statusCode, Body: body})
}

// AddHTML registers a 200 text/html GET reply for a URL
func (m *MockHTTPFetcher) AddHTML(url, body string) *MockHTTPFetcher {
	h := make(http.Header)
	h.Set("Content-Type", "text/html; charset=utf-8")
	return m.On(http.MethodGet, url, MockResponse{StatusCode: http.StatusOK, Body: body, Header: h})
}

// AddError registers a transport error for a GET of a URL
func (m *MockHTTPFetcher) AddError(url string, err error) *MockHTTPFetcher {
	return m.On(http.MethodGet, url, MockResponse{Err: err})
}

// Calls returns the "METHOD URL" log of every request served.
func (m *MockHTTPFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount counts requests served for method+URL.
func (m *MockHTTPFetcher) CallCount(method, url string) int {
	key := routeKey(method, url)
	n := 0
	for _, c := range m.Calls() {
		if c == key {
			n++
		}
	}
	return n
}

func (m *MockHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	key := routeKey(req.Method, req.URL.String())

	m.mu.Lock()
	m.calls = append(m.calls, key)
	queue, ok := m.routes[key]
	var reply MockResponse
	if ok && len(queue) > 0 {
		reply = queue[0]
		if len(queue) > 1 {
			m.routes[key] = queue[1:]
		}
	} else {
		reply = MockResponse{StatusCode: http.StatusNotFound, Body: "Not Found"}
	}
	m.mu.Unlock()

	if reply.Err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, reply.Err)
	}

	header := make(http.Header)
	for k, v := range reply.Header {
		header[k] = append([]string(nil), v...)
	}
	return &http.Response{
		StatusCode:    reply.StatusCode,
		Status:        fmt.Sprintf("%d %s", reply.StatusCode, http.StatusText(reply.StatusCode)),
		Body:          io.NopCloser(strings.NewReader(reply.Body)),
		Header:        header,
		ContentLength: -1,
		Request:       req,
	}, nil
}
