package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/products"
	"github.com/fulmenhq/isolinks/pkg/versioning"
)

// ProductCatalog finds an image in the vendor metadata; *products.Source
// implements it.
type ProductCatalog interface {
	Lookup(ctx context.Context, sel products.Selector) (*products.Record, error)
}

// MetadataStrategy resolves WindowsMode entries from products.xml.
type MetadataStrategy struct {
	products ProductCatalog
}

// NewMetadataStrategy creates a MetadataStrategy over p.
func NewMetadataStrategy(p ProductCatalog) *MetadataStrategy {
	return &MetadataStrategy{products: p}
}

func (s *MetadataStrategy) Resolve(ctx context.Context, d *catalog.Descriptor) (*Record, error) {
	sel := products.Selector{Edition: d.Edition, Language: d.Language, Architecture: d.Architecture}
	if missing := sel.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSelectors, strings.Join(missing, ", "))
	}
	if s.products == nil {
		return nil, fmt.Errorf("no products source configured")
	}

	logger.Debug("Looking up products document",
		logger.String("name", d.Name),
		logger.String("selector", sel.String()))

	pr, err := s.products.Lookup(ctx, sel)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		URL: pr.FilePath,
		Version: versioning.Choose(d.Version, func() (string, bool) {
			return versioning.FromBuildPrefix(pr.FileName)
		}),
		Size:    pr.Size,
		HasSize: pr.HasSize,
		Source:  SourceWindowsProductsXML,
	}
	rec.setDigest(checksum.SHA1, pr.Sha1)
	return rec, nil
}
