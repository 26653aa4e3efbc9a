package live

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchOnlyNotifier() (*PQNotifier, *bytes.Buffer) {
	var buf bytes.Buffer
	return &PQNotifier{
		Broker: NewBroker(),
		logger: slog.New(slog.NewJSONHandler(&buf, nil)),
	}, &buf
}

func TestPQNotifier_ReconnectNotifiesEveryone(t *testing.T) {
	n, _ := newDispatchOnlyNotifier()
	content, unsubContent := n.Subscribe("u1", CollectionContent)
	projects, unsubProjects := n.Subscribe("u2", CollectionProjects)
	defer unsubContent()
	defer unsubProjects()

	// 再接続時はnilが届く
	n.dispatch(nil)

	assert.Len(t, content, 1)
	assert.Len(t, projects, 1)
	assert.Equal(t, Change{}, <-content)
}

func TestPQNotifier_DispatchRoutesPayload(t *testing.T) {
	n, _ := newDispatchOnlyNotifier()
	a, unsubA := n.Subscribe("u1", CollectionContent)
	b, unsubB := n.Subscribe("u2", CollectionContent)
	defer unsubA()
	defer unsubB()

	n.dispatch(&pq.Notification{Channel: ChannelName, Extra: `{"collection":"content","user_id":"u1"}`})

	assert.Len(t, a, 1)
	assert.Len(t, b, 0)
	assert.Equal(t, Change{Collection: CollectionContent, UserID: "u1"}, <-a)
}

func TestPQNotifier_MalformedPayloadIgnored(t *testing.T) {
	n, logs := newDispatchOnlyNotifier()
	a, unsubA := n.Subscribe("u1", CollectionContent)
	b, unsubB := n.Subscribe("u2", CollectionProjects)
	defer unsubA()
	defer unsubB()

	for _, payload := range []string{"not json", `{"collection":"content"}`, ""} {
		n.dispatch(&pq.Notification{Channel: ChannelName, Extra: payload})
	}

	assert.Len(t, a, 0)
	assert.Len(t, b, 0)
	assert.Contains(t, logs.String(), "ignoring malformed change notification")
}

func TestPQNotifier_CloseIsIdempotent(t *testing.T) {
	n, _ := newDispatchOnlyNotifier()
	// 接続先のない待ち受け。Listenは接続まで待つため呼ばない
	n.listener = pq.NewListener("postgres://127.0.0.1:1/none?sslmode=disable", 10*time.Millisecond, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, n.Run(ctx))
	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
}
