package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"service_marketplace/internal/chat/domain"

	"github.com/google/uuid"
)

// State per peer selection
type State int

const (
	// StateIdle no peer selected
	StateIdle State = iota
	// StateLoading history reload in flight
	StateLoading
	// StateReady history loaded, live pushes are appended
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// ErrNoPeer send without a selected peer
var ErrNoPeer = errors.New("no peer selected")

// Gateway server calls the session depends on
type Gateway interface {
	History(ctx context.Context, peerID string) ([]domain.Message, error)
	Send(ctx context.Context, receiverID, body, clientMsgID string) (*domain.MessageEvent, error)
}

// Entry one line of the visible conversation
type Entry struct {
	domain.Message
	ClientMsgID string
	// Pending optimistic entry not yet confirmed, ID is empty
	Pending bool
}

// Session client side conversation state of one member
type Session struct {
	mu      sync.Mutex
	self    string
	gw      Gateway
	now     func() time.Time
	newID   func() string
	open    bool
	state   State
	peer    string
	entries []Entry
	unread  map[string]int
	// gen bumps on each selection so a late reload can tell it is stale
	gen      uint64
	buffered []domain.MessageEvent
}

// Option configure a Session
type Option func(*Session)

// WithClock override the optimistic timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator override the correlation id source
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

// NewSession create a Session for self talking through gw
func NewSession(self string, gw Gateway, opts ...Option) *Session {
	s := &Session{
		self:   self,
		gw:     gw,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		unread: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open mark the chat window open and select peer
func (s *Session) Open(ctx context.Context, peer string) error {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	return s.Select(ctx, peer)
}

// Close close the chat window, the selection is cleared but unread counts stay
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.gen++
	s.peer = ""
	s.state = StateIdle
	s.entries = nil
	s.buffered = nil
}

// IsOpen report whether the chat window is open
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Select switch to peer: clear its unread count and reload the full history.
// The reload replaces any local state, optimistic entries included.
func (s *Session) Select(ctx context.Context, peer string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.peer = peer
	delete(s.unread, peer)
	s.state = StateLoading
	s.buffered = nil
	s.mu.Unlock()

	msgs, err := s.gw.History(ctx, peer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.state = StateIdle
		s.entries = nil
		s.buffered = nil
		return err
	}

	entries := make([]Entry, 0, len(msgs)+len(s.buffered))
	for _, m := range msgs {
		entries = append(entries, Entry{Message: m})
	}
	s.entries = entries
	for _, ev := range s.buffered {
		s.applyVisible(ev)
	}
	s.buffered = nil
	s.state = StateReady
	return nil
}

// Send show body at once as a pending entry, then confirm or roll it back
func (s *Session) Send(ctx context.Context, body string) (*domain.MessageEvent, error) {
	s.mu.Lock()
	if s.peer == "" {
		s.mu.Unlock()
		return nil, ErrNoPeer
	}
	peer := s.peer
	cid := s.newID()
	s.entries = append(s.entries, Entry{
		Message: domain.Message{
			SenderID:   s.self,
			ReceiverID: peer,
			Body:       body,
			CreatedAt:  s.now(),
		},
		ClientMsgID: cid,
		Pending:     true,
	})
	s.mu.Unlock()

	ev, err := s.gw.Send(ctx, peer, body, cid)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.removePending(cid)
		return nil, err
	}
	if ev.ClientMsgID == "" {
		ev.ClientMsgID = cid
	}
	if s.peer == peer {
		if s.state == StateLoading {
			s.buffered = append(s.buffered, *ev)
		} else {
			s.applyVisible(*ev)
		}
	}
	return ev, nil
}

// HandlePush apply a server push: the open thread grows, other threads count unread
func (s *Session) HandlePush(ev domain.MessageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.SenderID != s.self && ev.ReceiverID != s.self {
		return
	}
	counterpart := ev.Counterpart(s.self)

	if s.peer != "" && counterpart == s.peer {
		if s.state == StateLoading {
			s.buffered = append(s.buffered, ev)
			return
		}
		s.applyVisible(ev)
		return
	}

	// own messages echoed from another tab are never unread
	if ev.SenderID == s.self {
		return
	}
	s.unread[counterpart]++
}

// applyVisible confirm a pending entry by correlation id, skip duplicates, else append
func (s *Session) applyVisible(ev domain.MessageEvent) {
	for _, e := range s.entries {
		if e.ID != "" && e.ID == ev.ID {
			return
		}
	}
	if ev.ClientMsgID != "" {
		for i, e := range s.entries {
			if e.Pending && e.ClientMsgID == ev.ClientMsgID {
				s.entries[i] = Entry{Message: ev.Message, ClientMsgID: ev.ClientMsgID}
				return
			}
		}
	}
	s.entries = append(s.entries, Entry{Message: ev.Message, ClientMsgID: ev.ClientMsgID})
}

func (s *Session) removePending(cid string) {
	for i, e := range s.entries {
		if e.Pending && e.ClientMsgID == cid {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// ClearUnread drop the unread count of peer
func (s *Session) ClearUnread(peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unread, peer)
}

// SetUnread replace every unread count, nil resets
func (s *Session) SetUnread(counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = make(map[string]int, len(counts))
	for peer, n := range counts {
		if n > 0 {
			s.unread[peer] = n
		}
	}
}

// Unread snapshot of the unread counts
func (s *Session) Unread() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.unread))
	for peer, n := range s.unread {
		out[peer] = n
	}
	return out
}

// TotalUnread sum over every peer
func (s *Session) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.unread {
		total += n
	}
	return total
}

// State current selection state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peer selected peer, empty when idle
func (s *Session) Peer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// Messages snapshot of the visible conversation
func (s *Session) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
