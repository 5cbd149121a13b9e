// Package resolve turns catalog descriptors into download records.
package resolve

import (
	"context"
	"errors"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/mirror"
)

var (
	// ErrNotFound means the mirror was reachable but holds nothing matching
	// the descriptor. It is never retried.
	ErrNotFound = errors.New("not found")
	// ErrMissingSelectors means a metadata descriptor lacks Edition, Language or Architecture.
	ErrMissingSelectors = errors.New("missing metadata selectors")
)

// Strategy resolves one descriptor.
type Strategy interface {
	Resolve(ctx context.Context, d *catalog.Descriptor) (*Record, error)
}

// SizeProber reports an artifact's length without downloading it.
type SizeProber interface {
	ProbeSize(ctx context.Context, rawURL string) (int64, bool)
}

// Mirror is the network surface the scraping strategy needs; *mirror.Client
// implements it.
type Mirror interface {
	SizeProber
	FetchListing(ctx context.Context, rawURL string) (*mirror.Listing, error)
	FetchListingOnce(ctx context.Context, rawURL string) (*mirror.Listing, error)
	FetchText(ctx context.Context, rawURL string) (string, error)
	MaxAttempts() int
}

var _ Mirror = (*mirror.Client)(nil)
