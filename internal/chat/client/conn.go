package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// ErrClosed call on a closed connection
var ErrClosed = errors.New("chat connection closed")

// frame server frame with the payload left raw
type frame struct {
	Action    string          `json:"action"`
	RequestID string          `json:"request_id,omitempty"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Conn websocket gateway to the chat service, requests are matched to replies by request_id
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan frame
	onPush  func(domain.MessageEvent)

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connect to serverURL (ws://host/ws) authenticating with token
func Dial(ctx context.Context, serverURL, token string) (*Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %v (status %d)", domain.ErrChannel, u.Redacted(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrChannel, u.Redacted(), err)
	}

	c := &Conn{
		ws:      ws,
		pending: make(map[string]chan frame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// OnPush set the handler of server message pushes
func (c *Conn) OnPush(f func(domain.MessageEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPush = f
}

// Done closed once the connection is gone
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reason the connection ended
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", domain.ErrChannel, err))
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Log.Warn("chat client decode", zap.Error(err))
			continue
		}

		if f.RequestID != "" {
			c.mu.Lock()
			ch, ok := c.pending[f.RequestID]
			delete(c.pending, f.RequestID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
			continue
		}

		if f.Action == string(domain.NotifyMessage) && f.Success {
			var ev domain.MessageEvent
			if err := json.Unmarshal(f.Payload, &ev); err != nil {
				logger.Log.Warn("chat client push decode", zap.Error(err))
				continue
			}
			c.mu.Lock()
			h := c.onPush
			c.mu.Unlock()
			if h != nil {
				h(ev)
			}
			continue
		}

		logger.Log.Debug("chat client frame", zap.String("action", f.Action), zap.String("error", f.Error))
	}
}

func (c *Conn) call(ctx context.Context, req domain.WSRequest) (frame, error) {
	req.RequestID = uuid.New().String()
	ch := make(chan frame, 1)

	c.mu.Lock()
	c.pending[req.RequestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.RequestID)
		c.mu.Unlock()
	}()

	if err := c.write(req); err != nil {
		return frame{}, err
	}

	select {
	case f := <-ch:
		if !f.Success {
			return f, remoteError(f.Error)
		}
		return f, nil
	case <-c.done:
		return frame{}, ErrClosed
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
}

func (c *Conn) write(req domain.WSRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChannel, err)
	}
	return nil
}

// remoteError map a server error text back onto its kind
func remoteError(msg string) error {
	for _, kind := range []error{domain.ErrValidation, domain.ErrStoreUnavailable, domain.ErrForbidden, domain.ErrChannel} {
		if strings.HasPrefix(msg, kind.Error()) {
			return fmt.Errorf("%w%s", kind, strings.TrimPrefix(msg, kind.Error()))
		}
	}
	return errors.New(msg)
}

// Join join own room and wait for the ack
func (c *Conn) Join(ctx context.Context) error {
	_, err := c.call(ctx, domain.WSRequest{Action: string(domain.JoinRoom)})
	return err
}

// History conversation with peerID, oldest first
func (c *Conn) History(ctx context.Context, peerID string) ([]domain.Message, error) {
	f, err := c.call(ctx, domain.WSRequest{Action: string(domain.GetHistory), PeerID: peerID})
	if err != nil {
		return nil, err
	}
	msgs := []domain.Message{}
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &msgs); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
	}
	return msgs, nil
}

// Send persist and deliver body to receiverID
func (c *Conn) Send(ctx context.Context, receiverID, body, clientMsgID string) (*domain.MessageEvent, error) {
	f, err := c.call(ctx, domain.WSRequest{
		Action:      string(domain.SendMessage),
		ReceiverID:  receiverID,
		Body:        body,
		ClientMsgID: clientMsgID,
	})
	if err != nil {
		return nil, err
	}
	var ev domain.MessageEvent
	if err := json.Unmarshal(f.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode send reply: %w", err)
	}
	return &ev, nil
}

// ListPeers chat directory of the authenticated member
func (c *Conn) ListPeers(ctx context.Context) ([]domain.ChatPeer, error) {
	f, err := c.call(ctx, domain.WSRequest{Action: string(domain.ListChatPeers)})
	if err != nil {
		return nil, err
	}
	peers := []domain.ChatPeer{}
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &peers); err != nil {
			return nil, fmt.Errorf("decode peers: %w", err)
		}
	}
	return peers, nil
}

// Close send a close frame and release the connection
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.shutdown(ErrClosed)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
		_ = c.ws.Close()
	})
}
