package resolve

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/fulmenhq/isolinks/pkg/pattern"
	"github.com/fulmenhq/isolinks/pkg/versioning"
	"golang.org/x/text/cases"
)

// aliasDirs are directory names that point at some real version.
var aliasDirs = []string{"latest", "current", "stable"}

// Directory names at least this long need a digit to count as version
// directories when no VersionMatch narrows the choice.
const maxBareDirName = 15

var hasDigit = regexp.MustCompile(`\d`)

// ScrapeStrategy finds an artifact by walking mirror directory listings.
type ScrapeStrategy struct {
	mirror Mirror
}

// NewScrapeStrategy creates a ScrapeStrategy using m for every request.
func NewScrapeStrategy(m Mirror) *ScrapeStrategy {
	return &ScrapeStrategy{mirror: m}
}

type candidate struct {
	name string
	url  string
}

func candidateName(c candidate) string { return c.name }

// Resolve looks for the artifact in the base listing first. Failing that it
// picks a version directory, descends PathNavigation and looks again there.
func (s *ScrapeStrategy) Resolve(ctx context.Context, d *catalog.Descriptor) (*Record, error) {
	logger.Debug("Checking base listing", logger.String("name", d.Name), logger.String("url", d.URL))
	base, err := s.mirror.FetchListing(ctx, d.URL)
	if err != nil {
		return nil, fmt.Errorf("base listing: %w", err)
	}

	if file, ok := matchFile(base, d); ok {
		logger.Debug("Found artifact in base listing", logger.String("name", d.Name), logger.String("file", file.name))
		return s.finish(ctx, d, base, file)
	}

	dir, err := s.selectDirectory(base, d)
	if err != nil {
		return nil, err
	}
	logger.Debug("Selected version directory", logger.String("name", d.Name), logger.String("dir", dir.name))

	target := dir.url
	if len(d.PathNavigation) > 0 {
		if target, err = s.navigate(ctx, dir.url, d.PathNavigation); err != nil {
			return nil, err
		}
	}

	listing, err := s.mirror.FetchListing(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("artifact directory: %w", err)
	}
	file, ok := matchFile(listing, d)
	if !ok {
		return nil, fmt.Errorf("%w: no file matching %q (%s) in %s", ErrNotFound, d.Extension, d.VersionMatch, target)
	}
	return s.finish(ctx, d, listing, file)
}

// matchFile returns the newest anchor whose filename matches the extension
// glob and version criteria. Query, fragment, mailto, parent and root-relative
// links are skipped, as are absolute links outside the listing.
func matchFile(listing *mirror.Listing, d *catalog.Descriptor) (candidate, bool) {
	var files []candidate
	for _, a := range listing.Anchors {
		if !fileLink(listing, a.Href) || !isHTTP(a.URL) {
			continue
		}
		name := a.Name()
		if name == "" || !pattern.MatchGlob(d.Extension, name) || !d.VersionMatch.Matches(name) {
			continue
		}
		files = append(files, candidate{name: name, url: a.URL})
	}
	if len(files) == 0 {
		return candidate{}, false
	}
	versioning.SortNewestFirst(files, candidateName)
	return files[0], true
}

func fileLink(listing *mirror.Listing, href string) bool {
	if href == "" {
		return false
	}
	external := strings.HasPrefix(href, "../") || strings.HasPrefix(href, "/") ||
		strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.Contains(href, "://")
	if !external {
		return true
	}
	return strings.HasPrefix(href, listing.URL) || strings.HasPrefix(href, listing.BaseURL)
}

// selectDirectory ranks the sub-directories of the base listing and picks
// one. Without VersionMatch, long names without digits are ignored and alias
// directories are passed over unless nothing else remains.
func (s *ScrapeStrategy) selectDirectory(listing *mirror.Listing, d *catalog.Descriptor) (candidate, error) {
	filtered := !d.VersionMatch.IsEmpty()

	var dirs []candidate
	for _, a := range listing.Anchors {
		if !a.IsDir() || a.Href == "../" || strings.HasPrefix(a.Href, "?") || strings.HasPrefix(a.Href, "#") {
			continue
		}
		if !isHTTP(a.URL) || isAncestor(a.URL, listing.BaseURL) {
			continue
		}
		name := a.DirName()
		if name == "" || !d.VersionMatch.Matches(name) {
			continue
		}
		if !filtered && !hasDigit.MatchString(name) && utf8.RuneCountInString(name) >= maxBareDirName {
			continue
		}
		dirs = append(dirs, candidate{name: name, url: a.URL})
	}
	if len(dirs) == 0 {
		return candidate{}, fmt.Errorf("%w: no file matching %q and no version directory in %s", ErrNotFound, d.Extension, listing.URL)
	}
	versioning.SortNewestFirst(dirs, candidateName)

	if filtered {
		return dirs[0], nil
	}
	for _, c := range dirs {
		if isAlias(c.name) {
			logger.Debug("Skipping alias directory", logger.String("name", d.Name), logger.String("dir", c.name))
			continue
		}
		return c, nil
	}
	logger.Warn("Only alias directories found; using the top-ranked one",
		logger.String("name", d.Name),
		logger.String("dir", dirs[0].name))
	return dirs[0], nil
}

func isAlias(dirName string) bool {
	last := dirName
	if i := strings.LastIndex(dirName, "/"); i >= 0 && i < len(dirName)-1 {
		last = dirName[i+1:]
	}
	// A Caser is not safe for concurrent use.
	last = cases.Fold().String(last)
	for _, alias := range aliasDirs {
		if last == alias {
			return true
		}
	}
	return false
}

// navigate descends from start through the literal directory names in
// steps. A retryable fetch failure on any hop restarts the whole chain from
// start; the retry budget is shared by all hops.
func (s *ScrapeStrategy) navigate(ctx context.Context, start string, steps []string) (string, error) {
	maxAttempts := s.mirror.MaxAttempts()
	current := start
	failures := 0

	for i := 0; i < len(steps); {
		listing, err := s.mirror.FetchListingOnce(ctx, current)
		if err != nil {
			if !mirror.IsRetryable(err) {
				return "", fmt.Errorf("navigate to %s: %w", steps[i], err)
			}
			failures++
			if failures >= maxAttempts {
				return "", fmt.Errorf("navigate %s from %s: %w after %d attempts: %w",
					strings.Join(steps, "/"), start, mirror.ErrRetriesExhausted, failures, err)
			}
			logger.Warn("Navigation fetch failed; restarting from version directory",
				logger.String("url", current),
				logger.String("restart", start),
				logger.Int("attempt", failures),
				logger.Int("max_attempts", maxAttempts),
				logger.Err(err))
			current, i = start, 0
			continue
		}

		child, ok := findChild(listing, steps[i])
		if !ok {
			return "", fmt.Errorf("%w: directory %q in %s", ErrNotFound, steps[i], current)
		}
		current = child
		i++
	}
	return current, nil
}

func findChild(listing *mirror.Listing, name string) (string, bool) {
	for _, a := range listing.Anchors {
		if a.IsDir() && a.DirName() == name && a.URL != "" {
			return a.URL, true
		}
	}
	return "", false
}

// finish fills in version, size and checksum for the selected file. Only the
// selection can fail; everything here is best effort.
func (s *ScrapeStrategy) finish(ctx context.Context, d *catalog.Descriptor, listing *mirror.Listing, file candidate) (*Record, error) {
	rec := &Record{URL: file.url, Source: SourceWebScrape}

	rec.Version = versioning.Choose(d.Version,
		func() (string, bool) { return versioning.FromFilename(file.name) },
		func() (string, bool) { return versioning.FromDirectoryPath(urlDir(file.url)) },
	)

	rec.Size, rec.HasSize = s.mirror.ProbeSize(ctx, file.url)

	if d.SHA256 != "" {
		rec.setDigest(checksum.SHA256, d.SHA256)
		return rec, nil
	}
	if d.HashMatch == "" {
		return rec, nil
	}

	digest, err := checksum.Lookup(ctx, s.mirror, listing, d.HashMatch, file.name)
	if err != nil {
		logger.Warn("Checksum not found; publishing without hash",
			logger.String("name", d.Name),
			logger.String("hash_match", d.HashMatch),
			logger.Err(err))
		return rec, nil
	}
	rec.setDigest(digest.Algorithm, digest.Value)
	return rec, nil
}

func isHTTP(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// isAncestor reports whether dirURL is base itself or one of its parents.
func isAncestor(dirURL, base string) bool {
	d, err := url.Parse(dirURL)
	if err != nil {
		return false
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	if !strings.EqualFold(d.Host, b.Host) {
		return false
	}
	dp := strings.TrimSuffix(d.Path, "/") + "/"
	bp := strings.TrimSuffix(b.Path, "/") + "/"
	return strings.HasPrefix(bp, dp)
}

func urlDir(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Dir(u.Path) + "/"
}
