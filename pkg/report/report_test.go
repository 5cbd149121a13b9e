package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
	"github.com/fulmenhq/isolinks/pkg/resolve"
)

func outcome(o resolve.Outcome, mode catalog.Mode) resolve.Outcome {
	o.Mode = mode
	return o
}

func sampleResults() *resolve.Results {
	r := resolve.NewResults([]string{"Debian", "日本語 Linux", "Windows 11", "Broken"})
	r.Set(outcome(resolve.Resolved("Debian", &resolve.Record{
		URL:       "https://cdimage.example/debian-12.5.0-amd64-netinst.iso",
		HashType:  checksum.SHA256,
		HashValue: "013f5b44670d81280b5b1bc02455842b250df2f0c6763398feb69af1a805a14f",
		Version:   "12.5.0",
		Size:      658505728,
		HasSize:   true,
		Source:    resolve.SourceWebScrape,
	}), catalog.ModeScrape))
	r.Set(outcome(resolve.Resolved("日本語 Linux", &resolve.Record{
		URL:     "https://jp.example/jp.iso",
		Version: "Unknown",
		Source:  resolve.SourceDirect,
	}), catalog.ModeDirect))
	r.Set(outcome(resolve.Resolved("Windows 11", &resolve.Record{
		URL:       "http://dl.example/file.esd?a=1&b=2",
		HashType:  checksum.SHA1,
		HashValue: "3d8c2a",
		Version:   "26100.2033",
		Size:      4031222272,
		HasSize:   true,
		Source:    resolve.SourceWindowsProductsXML,
	}), catalog.ModeMetadata))
	r.Set(outcome(resolve.Unresolved("Broken", errors.New("no file matching *.iso\nin listing | retry")), catalog.ModeScrape))
	return r
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Scrape", Title("scrape"))
	assert.Equal(t, "Metadata", Title("metadata"))
	assert.Equal(t, "Unresolved", Title("unresolved"))
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{658505728, "628.0 MiB"},
		{4031222272, "3.8 GiB"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HumanSize(tc.in))
	}
}

func TestTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleResults().Outcomes()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))

	modes := []string{"MODE", "Scrape", "Direct", "Metadata", "Scrape"}
	col := -1
	for i, line := range lines {
		idx := strings.Index(line, modes[i])
		require.GreaterOrEqual(t, idx, 0, "line %d: %q", i, line)
		w := runewidth.StringWidth(line[:idx])
		if col < 0 {
			col = w
		}
		assert.Equal(t, col, w, "mode column misaligned on line %d: %q", i, line)
	}
}

func TestTableRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleResults().Outcomes()))
	out := buf.String()

	assert.Contains(t, out, "SHA256, 628.0 MiB")
	assert.Contains(t, out, "no hash")
	assert.Contains(t, out, "SHA1, 3.8 GiB")
	assert.Contains(t, out, "Unresolved")
	assert.Contains(t, out, "no file matching *.iso in listing | retry", "newlines collapse to spaces")
}

func TestTableTruncatesLongCells(t *testing.T) {
	o := resolve.Unresolved("Long", errors.New(strings.Repeat("x", 200)))
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []resolve.Outcome{o}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "..."))
	assert.NotContains(t, lines[1], strings.Repeat("x", MaxCellWidth))
}

func TestCatalogTable(t *testing.T) {
	cat := &catalog.Catalog{Entries: []catalog.Entry{
		{Name: "Debian", Descriptor: &catalog.Descriptor{Name: "Debian", URL: "https://d.example/", Extension: "*.iso"}},
		{Name: "Arch", Descriptor: &catalog.Descriptor{Name: "Arch", Direct: "https://a.example/a.iso"}, Warnings: []string{"VersionMatch ignored"}},
		{Name: "Broken", Err: &catalog.ValidationError{Name: "Broken", Field: "Extension", Message: "required in scrape mode"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, CatalogTable(&buf, cat))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Regexp(t, `^Debian\s+Scrape\s+Valid$`, lines[1])
	assert.Regexp(t, `^Arch\s+Direct\s+Valid\s+VersionMatch ignored$`, lines[2])
	assert.Regexp(t, `^Broken\s+Scrape\s+Invalid\s+.*Extension`, lines[3])
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown(sampleResults(), Meta{
		Catalog:   "distros.yaml",
		Generated: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Contains(t, out, "# Distribution resolution report")
	assert.Contains(t, out, "Generated 2025-06-01T08:30:00Z from `distros.yaml`.")
	assert.Contains(t, out, "4 processed, 3 resolved, 1 unresolved.")
	assert.Contains(t, out, "| Debian | Scrape | Resolved | 12.5.0 | SHA256 `013f5b44670d81280b5b1bc02455842b250df2f0c6763398feb69af1a805a14f` | 628.0 MiB |")
	assert.Contains(t, out, "| 日本語 Linux | Direct | Resolved | Unknown | - | - |")
	assert.Contains(t, out, "| Broken | Scrape | Unresolved | - | - | - |")
	assert.Contains(t, out, "## Unresolved")
	assert.Contains(t, out, `- **Broken**: no file matching *.iso in listing \| retry`)
	assert.Contains(t, out, "- Windows 11: <http://dl.example/file.esd?a=1&b=2>", "URLs are not HTML-escaped")
}

func TestRenderMarkdownEscapesPipes(t *testing.T) {
	r := resolve.NewResults([]string{"A|B", "C|D"})
	r.Set(outcome(resolve.Resolved("A|B", &resolve.Record{URL: "https://a.example/a.iso", Version: "1|2", Source: resolve.SourceDirect}), catalog.ModeDirect))
	r.Set(outcome(resolve.Unresolved("C|D", errors.New("status | 404")), catalog.ModeScrape))

	out, err := RenderMarkdown(r, Meta{})
	require.NoError(t, err)
	assert.Contains(t, out, `| A\|B | Direct | Resolved | 1\|2 |`)
	assert.Contains(t, out, `- A\|B: <https://a.example/a.iso>`)
	assert.Contains(t, out, `- **C\|D**: status \| 404`)
	assert.NotContains(t, out, "A|B")
	assert.NotContains(t, out, "status | 404")
}

func TestRenderMarkdownAllResolved(t *testing.T) {
	r := resolve.NewResults([]string{"Arch"})
	r.Set(outcome(resolve.Resolved("Arch", &resolve.Record{URL: "https://a.example/a.iso", Version: "2024.06", Source: resolve.SourceDirect}), catalog.ModeDirect))

	out, err := RenderMarkdown(r, Meta{Generated: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.NotContains(t, out, "## Unresolved")
	assert.NotContains(t, out, " from `")
	assert.Contains(t, out, "1 processed, 1 resolved, 0 unresolved.")
}

func TestRenderMarkdownCanRunTwice(t *testing.T) {
	for i := 0; i < 2; i++ {
		_, err := RenderMarkdown(sampleResults(), Meta{})
		require.NoError(t, err)
	}
}
