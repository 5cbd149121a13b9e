package checksum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/mirror"
	"github.com/fulmenhq/isolinks/pkg/pattern"
)

var (
	// ErrManifestNotFound means no anchor in the directory matched the manifest glob.
	ErrManifestNotFound = errors.New("checksum manifest not found")
	// ErrDigestNotFound means the manifest has no line for the artifact.
	ErrDigestNotFound = errors.New("artifact digest not listed in manifest")
	// ErrUnknownAlgorithm means a digest was found but its algorithm could not be inferred.
	ErrUnknownAlgorithm = errors.New("cannot infer digest algorithm")
)

// Digest is a checksum with its algorithm. Both fields are always set.
type Digest struct {
	Algorithm Algorithm
	Value     string
}

// TextFetcher downloads a manifest body.
type TextFetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// FindManifest returns the first anchor of listing whose filename matches glob.
// Query, fragment, mailto and parent links are ignored, as are absolute links
// that leave the listing's directory.
func FindManifest(listing *mirror.Listing, glob string) (mirror.Anchor, bool) {
	for _, a := range listing.Anchors {
		href := a.Href
		if href == "" || hasAnyPrefix(href, "?", "#", "mailto:", "../") {
			continue
		}
		if strings.Contains(href, "://") && !strings.HasPrefix(href, listing.URL) && !strings.HasPrefix(href, listing.BaseURL) {
			continue
		}
		if a.URL == "" {
			continue
		}
		if pattern.MatchGlob(glob, a.Name()) {
			return a, true
		}
	}
	return mirror.Anchor{}, false
}

// Lookup finds the manifest matching glob in listing, downloads it and
// extracts the digest of target. Every failure is soft for callers: the
// artifact stays resolvable without a checksum.
func Lookup(ctx context.Context, fetcher TextFetcher, listing *mirror.Listing, glob, target string) (*Digest, error) {
	manifest, ok := FindManifest(listing, glob)
	if !ok {
		return nil, fmt.Errorf("%w: no %q in %s", ErrManifestNotFound, glob, listing.URL)
	}

	logger.Debug("Fetching checksum manifest",
		logger.String("manifest", manifest.URL),
		logger.String("target", target))

	content, err := fetcher.FetchText(ctx, manifest.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", manifest.URL, err)
	}

	value, ok := Parse(content, target)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrDigestNotFound, target, manifest.URL)
	}

	hint := manifest.Name()
	if hint == "" {
		hint = glob
	}
	alg := InferAlgorithm(hint, value)
	if alg == AlgorithmUnknown {
		return nil, fmt.Errorf("%w: %s (%d hex chars)", ErrUnknownAlgorithm, manifest.Name(), len(value))
	}
	return &Digest{Algorithm: alg, Value: value}, nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
