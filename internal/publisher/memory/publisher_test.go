package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "page.saved", map[string]string{"url": "u1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "page.saved", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	msgs[0].Topic = "modified"
	require.Equal(t, "page.saved", pub.Messages()[0].Topic)
}
