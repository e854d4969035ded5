package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublishSendsJSONToTopic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	client, err := pubsub.NewClient(ctx, "proj", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "page-events")
	require.NoError(t, err)

	pub := New(topic)
	t.Cleanup(func() { _ = pub.Close() })

	id, err := pub.Publish(ctx, "page.saved", map[string]string{"url": "https://www.reddit.com/r/acme"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "application/json", msgs[0].Attributes["content-type"])
	require.Equal(t, "page.saved", msgs[0].Attributes["event"])

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &payload))
	require.Equal(t, "https://www.reddit.com/r/acme", payload["url"])
}

func TestPublishWithoutTopicFails(t *testing.T) {
	t.Parallel()

	_, err := (&Publisher{}).Publish(context.Background(), "", "x")
	require.Error(t, err)

	_, err = Open(context.Background(), "", "")
	require.Error(t, err)
}
