package resolve

import (
	"context"
	"fmt"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/versioning"
)

// DirectStrategy publishes the literal URL of a DIRECT entry.
type DirectStrategy struct {
	prober SizeProber
}

// NewDirectStrategy creates a DirectStrategy. A nil prober skips the size probe.
func NewDirectStrategy(prober SizeProber) *DirectStrategy {
	return &DirectStrategy{prober: prober}
}

func (s *DirectStrategy) Resolve(ctx context.Context, d *catalog.Descriptor) (*Record, error) {
	if d.Direct == "" {
		return nil, fmt.Errorf("%s: no DIRECT URL", d.Name)
	}

	rec := &Record{
		URL:     d.Direct,
		Version: versioning.Choose(d.Version),
		Source:  SourceDirect,
	}
	if d.SHA256 != "" {
		rec.setDigest(checksum.SHA256, d.SHA256)
	} else {
		logger.Warn("No SHA256 provided for direct download", logger.String("name", d.Name))
	}

	if s.prober != nil {
		rec.Size, rec.HasSize = s.prober.ProbeSize(ctx, d.Direct)
	}
	return rec, nil
}
