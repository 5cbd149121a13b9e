package resolve

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
	"github.com/fulmenhq/isolinks/pkg/products"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectStrategy(t *testing.T) {
	const u = "https://geo.example/iso/latest/archlinux-x86_64.iso"

	t.Run("with checksum and size", func(t *testing.T) {
		mock := newMock()
		withSize(mock, u, 1202012160)
		d := &catalog.Descriptor{Name: "Arch", Direct: u, SHA256: sha256Digest, Version: "2024.06.01"}

		rec, err := NewDirectStrategy(testMirror(mock)).Resolve(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, &Record{
			URL:       u,
			HashType:  checksum.SHA256,
			HashValue: sha256Digest,
			Version:   "2024.06.01",
			Size:      1202012160,
			HasSize:   true,
			Source:    SourceDirect,
		}, rec)
	})

	t.Run("without checksum", func(t *testing.T) {
		rec, err := NewDirectStrategy(testMirror(newMock())).Resolve(context.Background(), &catalog.Descriptor{Name: "Arch", Direct: u})
		require.NoError(t, err)
		assert.False(t, rec.HasHash())
		assert.Equal(t, "Unknown", rec.Version)
		assert.False(t, rec.HasSize)
	})

	t.Run("size from streamed GET", func(t *testing.T) {
		mock := newMock()
		mock.On(http.MethodHead, u, status(http.StatusOK))
		mock.On(http.MethodGet, u, htmlReply(""))
		rec, err := NewDirectStrategy(testMirror(mock)).Resolve(context.Background(), &catalog.Descriptor{Name: "Arch", Direct: u})
		require.NoError(t, err)
		assert.False(t, rec.HasSize)
		assert.Equal(t, 1, mock.CallCount(http.MethodGet, u))
	})

	t.Run("nil prober", func(t *testing.T) {
		rec, err := NewDirectStrategy(nil).Resolve(context.Background(), &catalog.Descriptor{Name: "Arch", Direct: u})
		require.NoError(t, err)
		assert.Equal(t, u, rec.URL)
	})
}

type fakeProducts struct {
	rec *products.Record
	err error
	sel products.Selector
}

func (f *fakeProducts) Lookup(_ context.Context, sel products.Selector) (*products.Record, error) {
	f.sel = sel
	return f.rec, f.err
}

func windowsDescriptor() *catalog.Descriptor {
	return &catalog.Descriptor{
		Name:         "Windows 11",
		WindowsMode:  true,
		Edition:      "Professional",
		Language:     "en-us",
		Architecture: "x64",
	}
}

func TestMetadataStrategy(t *testing.T) {
	pr := &products.Record{
		FileName: "26100.2033.241004-2336.ge_release_svc_refresh_CLIENTCONSUMER_RET_x64FRE_en-us.esd",
		FilePath: "http://dl.delivery.example/en-us.esd",
		Sha1:     "3d8c2a1e4b2f0c5a1e9d7b6a5c4d3e2f1a0b9c8d",
		Size:     4031222272,
		HasSize:  true,
	}

	t.Run("resolved", func(t *testing.T) {
		fake := &fakeProducts{rec: pr}
		rec, err := NewMetadataStrategy(fake).Resolve(context.Background(), windowsDescriptor())
		require.NoError(t, err)
		assert.Equal(t, products.Selector{Edition: "Professional", Language: "en-us", Architecture: "x64"}, fake.sel)
		assert.Equal(t, &Record{
			URL:       pr.FilePath,
			HashType:  checksum.SHA1,
			HashValue: pr.Sha1,
			Version:   "26100.2033",
			Size:      4031222272,
			HasSize:   true,
			Source:    SourceWindowsProductsXML,
		}, rec)
	})

	t.Run("explicit version", func(t *testing.T) {
		d := windowsDescriptor()
		d.Version = "24H2"
		rec, err := NewMetadataStrategy(&fakeProducts{rec: pr}).Resolve(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, "24H2", rec.Version)
	})

	t.Run("no digest and unparseable build", func(t *testing.T) {
		bare := &products.Record{FileName: "windows.esd", FilePath: "http://dl.delivery.example/w.esd"}
		rec, err := NewMetadataStrategy(&fakeProducts{rec: bare}).Resolve(context.Background(), windowsDescriptor())
		require.NoError(t, err)
		assert.False(t, rec.HasHash())
		assert.Equal(t, "Unknown", rec.Version)
	})

	t.Run("missing selectors", func(t *testing.T) {
		d := windowsDescriptor()
		d.Language = ""
		fake := &fakeProducts{rec: pr}
		_, err := NewMetadataStrategy(fake).Resolve(context.Background(), d)
		assert.True(t, errors.Is(err, ErrMissingSelectors))
		assert.Contains(t, err.Error(), "Language")
		assert.Empty(t, fake.sel.Edition, "lookup must not run")
	})

	t.Run("lookup failure", func(t *testing.T) {
		_, err := NewMetadataStrategy(&fakeProducts{err: products.ErrDocumentMissing}).Resolve(context.Background(), windowsDescriptor())
		assert.True(t, errors.Is(err, products.ErrDocumentMissing))
	})

	t.Run("against products.xml fixture", func(t *testing.T) {
		src := products.NewSource("../products/testdata/products.xml", nil)
		rec, err := NewMetadataStrategy(src).Resolve(context.Background(), windowsDescriptor())
		require.NoError(t, err)
		assert.Equal(t, "http://dl.delivery.mp.microsoft.com/filestreamingservice/files/en-us.esd", rec.URL)
		assert.Equal(t, "26100.2033", rec.Version)
	})
}
