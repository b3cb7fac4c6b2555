package events

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbtriage/backend/internal/models"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegrationTicketCreated(t *testing.T) {
	url := skipWithoutNATS(t)

	n, err := NewNATSNotifier(url, "", zerolog.Nop())
	require.NoError(t, err)
	defer n.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(SubjectTicketCreated, received)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	ref := models.TicketRef{Key: "OPS-1", ID: "1", URL: "https://x/browse/OPS-1"}
	require.NoError(t, n.TicketCreated(context.Background(), "OPS", ref))

	select {
	case msg := <-received:
		var ev TicketCreated
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "OPS-1", ev.Key)
		assert.Equal(t, "OPS", ev.ProjectKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.TicketCreated(context.Background(), "OPS", models.TicketRef{}))
	assert.NoError(t, n.ArticlePublished(context.Background(), "OPS-1", models.PublishResult{}))
	n.Close()
}
