package checksum

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestParseCoreutilsLine(t *testing.T) {
	digest, ok := Parse(emptySHA256+"  image.iso", "image.iso")
	require.True(t, ok)
	assert.Equal(t, emptySHA256, digest)
	assert.Equal(t, SHA256, InferAlgorithm("", digest))
}

func TestParseVariants(t *testing.T) {
	md5 := "d41d8cd98f00b204e9800998ecf8427e"
	tests := []struct {
		name    string
		content string
		target  string
		want    string
		found   bool
	}{
		{"binary marker", emptySHA256 + " *image.iso", "image.iso", emptySHA256, true},
		{"path suffix", emptySHA256 + "  ./amd64/image.iso", "image.iso", emptySHA256, true},
		{"suffix must be a path component", emptySHA256 + "  myimage.iso", "image.iso", "", false},
		{"comment skipped", "# " + emptySHA256 + "  image.iso", "image.iso", "", false},
		{"short digest ignored", "abcdef  image.iso", "image.iso", "", false},
		{"md5 line", md5 + "  image.iso", "image.iso", md5, true},
		{"tagged form", "SHA256 (image.iso) = " + emptySHA256, "image.iso", emptySHA256, true},
		{"tagged wrong name", "SHA256 (other.iso) = " + emptySHA256, "image.iso", "", false},
		{"tagged non hex", "SHA256 (image.iso) = not-a-digest", "image.iso", "", false},
		{"first match wins", emptySHA256 + "  image.iso\n" + md5 + "  image.iso", "image.iso", emptySHA256, true},
		{"crlf", emptySHA256 + "  image.iso\r\n", "image.iso", emptySHA256, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.content, tc.target)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFixtures(t *testing.T) {
	sums, err := os.ReadFile("testdata/SHA256SUMS")
	require.NoError(t, err)
	digest, ok := Parse(string(sums), "debian-12.5.0-amd64-netinst.iso")
	require.True(t, ok)
	assert.Equal(t, "013f5b44670d81280b5b1bc02455842b250df2f0c6763398feb69af1a805a14f", digest)

	bsd, err := os.ReadFile("testdata/CHECKSUM.bsd")
	require.NoError(t, err)
	digest, ok = Parse(string(bsd), "Fedora-Workstation-Live-x86_64-40-1.14.iso")
	require.True(t, ok)
	assert.Equal(t, "dd1faca950d1a8c3d169adf2df4c3644ebb62f8aac04c401f2393e521395d613", digest)
}

func TestInferAlgorithm(t *testing.T) {
	tests := []struct {
		hint, digest string
		want         Algorithm
	}{
		{"SHA512SUMS", emptySHA256, SHA512},
		{"sha256sum.txt", "", SHA256},
		{"SHA1SUMS", "", SHA1},
		{"MD5SUMS", "", MD5},
		{"CHECKSUM", strings.Repeat("a", 128), SHA512},
		{"CHECKSUM", strings.Repeat("a", 96), SHA384},
		{"", strings.Repeat("a", 64), SHA256},
		{"", strings.Repeat("a", 56), SHA224},
		{"", strings.Repeat("a", 40), SHA1},
		{"", strings.Repeat("a", 32), MD5},
		{"", " " + strings.Repeat("a", 64) + "\n", SHA256},
		{"CHECKSUM", strings.Repeat("a", 33), AlgorithmUnknown},
		{"", "", AlgorithmUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, InferAlgorithm(tc.hint, tc.digest), "hint=%q len=%d", tc.hint, len(tc.digest))
	}
}

func listing(dir string, hrefs ...string) *mirror.Listing {
	l := &mirror.Listing{URL: dir, BaseURL: dir}
	for _, h := range hrefs {
		u := ""
		if strings.Contains(h, "://") {
			u = h
		} else if !strings.HasPrefix(h, "?") && !strings.HasPrefix(h, "mailto:") {
			u = dir + h
		}
		l.Anchors = append(l.Anchors, mirror.Anchor{Href: h, URL: u})
	}
	return l
}

func TestFindManifest(t *testing.T) {
	const dir = "https://mirror.example/iso/"
	l := listing(dir,
		"?C=N;O=D",
		"../",
		"mailto:SHA256SUMS",
		"https://elsewhere.example/SHA256SUMS",
		"image.iso",
		"SHA256SUMS",
		"SHA256SUMS.sign",
	)

	a, ok := FindManifest(l, "SHA256SUMS*")
	require.True(t, ok)
	assert.Equal(t, dir+"SHA256SUMS", a.URL)

	a, ok = FindManifest(l, "*.sign")
	require.True(t, ok)
	assert.Equal(t, "SHA256SUMS.sign", a.Name())

	_, ok = FindManifest(l, "*.sha512")
	assert.False(t, ok)
}

func TestFindManifestAcceptsAbsoluteLinksInsideDirectory(t *testing.T) {
	const dir = "https://mirror.example/iso/"
	l := listing(dir, dir+"CHECKSUM")
	a, ok := FindManifest(l, "CHECKSUM")
	require.True(t, ok)
	assert.Equal(t, dir+"CHECKSUM", a.URL)
}

func TestLookup(t *testing.T) {
	const dir = "https://mirror.example/iso/"
	ctx := context.Background()
	opts := mirror.Options{ProbeTimeout: time.Second}

	t.Run("found", func(t *testing.T) {
		mock := mirror.NewMockHTTPFetcher()
		mock.AddResponse(dir+"SHA256SUMS", http.StatusOK, emptySHA256+"  image.iso\n")
		client := mirror.NewClientWithFetcher(opts, mock)

		d, err := Lookup(ctx, client, listing(dir, "image.iso", "SHA256SUMS"), "SHA256SUMS", "image.iso")
		require.NoError(t, err)
		assert.Equal(t, &Digest{Algorithm: SHA256, Value: emptySHA256}, d)
	})

	t.Run("algorithm from length when manifest name is generic", func(t *testing.T) {
		mock := mirror.NewMockHTTPFetcher()
		sha1 := strings.Repeat("ab", 20)
		mock.AddResponse(dir+"CHECKSUM", http.StatusOK, sha1+"  image.iso\n")
		client := mirror.NewClientWithFetcher(opts, mock)

		d, err := Lookup(ctx, client, listing(dir, "CHECKSUM"), "CHECK*", "image.iso")
		require.NoError(t, err)
		assert.Equal(t, SHA1, d.Algorithm)
	})

	t.Run("manifest missing", func(t *testing.T) {
		client := mirror.NewClientWithFetcher(opts, mirror.NewMockHTTPFetcher())
		_, err := Lookup(ctx, client, listing(dir, "image.iso"), "SHA256SUMS", "image.iso")
		assert.True(t, errors.Is(err, ErrManifestNotFound))
	})

	t.Run("digest missing", func(t *testing.T) {
		mock := mirror.NewMockHTTPFetcher()
		mock.AddResponse(dir+"SHA256SUMS", http.StatusOK, emptySHA256+"  other.iso\n")
		client := mirror.NewClientWithFetcher(opts, mock)
		_, err := Lookup(ctx, client, listing(dir, "SHA256SUMS"), "SHA256SUMS", "image.iso")
		assert.True(t, errors.Is(err, ErrDigestNotFound))
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		mock := mirror.NewMockHTTPFetcher()
		mock.AddResponse(dir+"SUMS", http.StatusOK, strings.Repeat("a", 48)+"  image.iso\n")
		client := mirror.NewClientWithFetcher(opts, mock)
		_, err := Lookup(ctx, client, listing(dir, "SUMS"), "SUMS", "image.iso")
		assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
	})

	t.Run("fetch failure", func(t *testing.T) {
		mock := mirror.NewMockHTTPFetcher()
		mock.AddResponse(dir+"SHA256SUMS", http.StatusForbidden, "")
		client := mirror.NewClientWithFetcher(opts, mock)
		_, err := Lookup(ctx, client, listing(dir, "SHA256SUMS"), "SHA256SUMS", "image.iso")
		var statusErr *mirror.StatusError
		assert.True(t, errors.As(err, &statusErr))
	})
}
