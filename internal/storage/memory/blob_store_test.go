package memory

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("<html>content</html>")
	uri, err := store.PutObject(context.Background(), "pages/acme/abc.html", "text/html", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://pages/acme/abc.html", uri)

	payload[0] = 'X'
	stored, ok := store.Object("pages/acme/abc.html")
	require.True(t, ok)
	require.Equal(t, "<html>content</html>", string(stored))
	require.Equal(t, 1, store.Len())

	_, ok = store.Object("missing")
	require.False(t, ok)
}
