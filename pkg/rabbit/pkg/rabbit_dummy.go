package rabbit

import (
	"context"
	"sync"
)

// Dummy keeps published bodies in memory instead of sending them.
type Dummy struct {
	mu       sync.Mutex
	messages [][]byte
}

func (n *Dummy) Publish(ctx context.Context, body []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, append([]byte(nil), body...))
	return nil
}

func (n *Dummy) Messages() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.messages...)
}
