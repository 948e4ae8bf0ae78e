package rabbit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutConfigIsDummy(t *testing.T) {
	r := New(nil)
	d, ok := r.(*Dummy)
	require.True(t, ok)

	require.NoError(t, r.Publish(context.Background(), []byte(`{"type":"session_completed"}`)))
	assert.Equal(t, [][]byte{[]byte(`{"type":"session_completed"}`)}, d.Messages())
}

func TestConnectionURL(t *testing.T) {
	url := ConnectionURL(&Config{Address: "mq", Port: 5672, Username: "guest", Password: "secret"})
	assert.Equal(t, "amqp://guest:secret@mq:5672/", url)
}

func TestPublishUnreachableBroker(t *testing.T) {
	r := New(&Config{Address: "127.0.0.1", Port: 1, Username: "u", Password: "p", PublicQueue: "q"})
	assert.Error(t, r.Publish(context.Background(), []byte("{}")))
}
