package feed

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHubBroadcastToTCPClient(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()
	defer client.Close()

	hub.Add(server)
	assert.Equal(t, 1, hub.Stats().TCPClients)

	go func() {
		hub.Welcome(server)
		hub.BroadcastJSON(ChangeEvent{
			Type:  "book.created",
			ID:    42,
			Title: "Animal Farm",
			At:    time.Now().UTC(),
		})
	}()

	sc := bufio.NewScanner(client)

	require.True(t, sc.Scan())
	var welcome map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &welcome))
	assert.Equal(t, "welcome", welcome["type"])
	assert.Equal(t, "tcp", welcome["transport"])

	require.True(t, sc.Scan())
	var ev ChangeEvent
	require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
	assert.Equal(t, "book.created", ev.Type)
	assert.Equal(t, int64(42), ev.ID)
	assert.Equal(t, "Animal Farm", ev.Title)
	assert.Empty(t, ev.Name)

	hub.Remove(server)
	assert.Equal(t, 0, hub.Stats().TCPClients)
}

func TestHubDropsDeadConnection(t *testing.T) {
	hub := NewHub()
	client, server := net.Pipe()

	hub.Add(server)
	require.NoError(t, client.Close())

	hub.BroadcastJSON(ChangeEvent{Type: "book.deleted", ID: 1, At: time.Now().UTC()})
	assert.Equal(t, 0, hub.Stats().TCPClients)
}
