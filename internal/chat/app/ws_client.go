package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// frameWriter the part of a websocket conn the write pump needs
type frameWriter interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
}

// wsClient one websocket connection; every write goes through writePump
type wsClient struct {
	id       string
	memberID string
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func newWSClient(memberID string, buffer int) *wsClient {
	return &wsClient{
		id:       uuid.New().String(),
		memberID: memberID,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

func (c *wsClient) ID() string {
	return c.id
}

// Deliver queue a push, never blocks; a full buffer drops it
func (c *wsClient) Deliver(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%w: encode push: %v", domain.ErrChannel, err)
	}

	select {
	case <-c.done:
		return fmt.Errorf("%w: connection %s closed", domain.ErrChannel, c.id)
	default:
	}

	select {
	case c.send <- b:
		return nil
	default:
		return fmt.Errorf("%w: send buffer full on %s", domain.ErrChannel, c.id)
	}
}

// reply queue a direct response, waits for room in the buffer
func (c *wsClient) reply(resp domain.WSResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%w: encode reply: %v", domain.ErrChannel, err)
	}

	select {
	case <-c.done:
		return fmt.Errorf("%w: connection %s closed", domain.ErrChannel, c.id)
	default:
	}

	select {
	case <-c.done:
		return fmt.Errorf("%w: connection %s closed", domain.ErrChannel, c.id)
	case c.send <- b:
		return nil
	}
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.done) })
}

// writePump single writer of conn, also sends the keepalive pings
func (c *wsClient) writePump(conn frameWriter, textType, pingType int, pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case b := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(textType, b); err != nil {
				logger.Log.Warn("websocket write", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(pingType, []byte("ping")); err != nil {
				logger.Log.Warn("websocket ping", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
