package resolve

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/fulmenhq/isolinks/pkg/pattern"
)

// page renders an autoindex-style listing of hrefs.
func page(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Index</title></head><body><pre>\n")
	for _, h := range hrefs {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", h, h)
	}
	b.WriteString("</pre></body></html>\n")
	return b.String()
}

func newMock() *mirror.MockHTTPFetcher {
	return mirror.NewMockHTTPFetcher()
}

func testMirror(mock *mirror.MockHTTPFetcher) *mirror.Client {
	return mirror.NewClientWithFetcher(mirror.Options{
		ListingTimeout: time.Second,
		ProbeTimeout:   time.Second,
	}, mock)
}

func withSize(mock *mirror.MockHTTPFetcher, url string, size int64) {
	h := make(http.Header)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	mock.On(http.MethodHead, url, mirror.MockResponse{StatusCode: http.StatusOK, Header: h})
}

func status(code int) mirror.MockResponse {
	return mirror.MockResponse{StatusCode: code}
}

func htmlReply(body string) mirror.MockResponse {
	return mirror.MockResponse{StatusCode: http.StatusOK, Body: body, Header: http.Header{"Content-Type": {"text/html"}}}
}

func scrapeDescriptor(t *testing.T, name, url, ext string, versionMatch any) *catalog.Descriptor {
	t.Helper()
	vm, err := pattern.CriteriaFrom(versionMatch)
	if err != nil {
		t.Fatalf("criteria: %v", err)
	}
	return &catalog.Descriptor{Name: name, URL: url, Extension: ext, VersionMatch: vm}
}
