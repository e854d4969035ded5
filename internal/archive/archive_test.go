package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/storage/memory"
)

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Acme":          "acme",
		"Fyxer.ai Pro!": "fyxer-ai-pro",
		"  --  ":        "product",
		"Café Ölçer 2":  "café-ölçer-2",
		"a///b":         "a-b",
	}
	for in, want := range cases {
		require.Equal(t, want, Slug(in), in)
	}
}

func TestSaveWritesUnderHashedPath(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	a := New(blobs, "/archive/")
	page := outreach.Page{URL: "https://www.reddit.com/r/acme/comments/1/x", HTML: "<html>thread</html>"}

	uri, err := a.Save(context.Background(), "Acme", page)
	require.NoError(t, err)

	path := a.Path("Acme", page.URL)
	require.Regexp(t, `^archive/acme/[0-9a-f]{64}\.html$`, path)
	require.Equal(t, "memory://"+path, uri)

	stored, ok := blobs.Object(path)
	require.True(t, ok)
	require.Equal(t, page.HTML, string(stored))
	require.Equal(t, path, a.Path("Acme", page.URL))
	require.NotEqual(t, path, a.Path("Acme", page.URL+"/other"))
}

func TestSaveErrors(t *testing.T) {
	t.Parallel()

	_, err := New(memory.NewBlobStore(), "").Save(context.Background(), "Acme", outreach.Page{URL: "u"})
	require.Error(t, err)

	_, err = New(failingBlobs{}, "").Save(context.Background(), "Acme", outreach.Page{URL: "u", HTML: "<html/>"})
	require.ErrorContains(t, err, "bucket unavailable")
}
