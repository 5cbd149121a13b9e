package mirror

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchorsApacheIndex(t *testing.T) {
	f, err := os.Open("testdata/debian-cd.html")
	require.NoError(t, err)
	defer f.Close()

	base, _ := url.Parse("https://cdimage.debian.org/debian-cd/current/amd64/iso-cd/")
	anchors, err := ParseAnchors(base, f)
	require.NoError(t, err)

	hrefs := make([]string, len(anchors))
	for i, a := range anchors {
		hrefs[i] = a.Href
	}
	assert.Equal(t, []string{
		"?C=N;O=D", "?C=M;O=A", "?C=S;O=A",
		"/debian-cd/current/amd64/",
		"SHA256SUMS", "SHA256SUMS.sign",
		"debian-12.5.0-amd64-netinst.iso", "debian-edu-12.5.0-amd64-netinst.iso",
		"mailto:cd@debian.org",
	}, hrefs)

	iso := anchors[6]
	assert.Equal(t, "https://cdimage.debian.org/debian-cd/current/amd64/iso-cd/debian-12.5.0-amd64-netinst.iso", iso.URL)
	assert.Equal(t, "debian-12.5.0-amd64-netinst.iso", iso.Name())
	assert.False(t, iso.IsDir())

	parent := anchors[3]
	assert.True(t, parent.IsDir())
	assert.Equal(t, "https://cdimage.debian.org/debian-cd/current/amd64/", parent.URL)
	assert.Equal(t, "debian-cd/current/amd64", parent.DirName())
	assert.Equal(t, "", parent.Name())
}

func TestParseAnchorsEntitiesAndSelfClosing(t *testing.T) {
	base, _ := url.Parse("https://mirror.example/pub/")
	doc := `<a href="a&amp;b.iso"/><a class="x" href="sub/">sub</a><a>none</a>`
	anchors, err := ParseAnchors(base, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	assert.Equal(t, "a&b.iso", anchors[0].Href)
	assert.Equal(t, "https://mirror.example/pub/sub/", anchors[1].URL)
	assert.Equal(t, "sub", anchors[1].DirName())
}

func TestParseAnchorsWithoutBase(t *testing.T) {
	anchors, err := ParseAnchors(nil, strings.NewReader(`<a href="x.iso">x</a>`))
	require.NoError(t, err)
	require.Len(t, anchors, 1)
	assert.Empty(t, anchors[0].URL)
}
