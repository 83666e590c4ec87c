package app

import (
	"context"
	"fmt"
	"sync"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/internal/chat/repository"
	"service_marketplace/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Connection one live push channel of a member
type Connection interface {
	ID() string
	Deliver(resp domain.WSResponse) error
}

// Broadcaster relays room pushes between chat nodes
type Broadcaster interface {
	Publish(ctx context.Context, channel string, message domain.RelayEvent) error
	Subscribe(ctx context.Context, channel string, handler func(ev domain.RelayEvent)) (func(), error)
}

type room struct {
	members     map[string]Connection
	stop        func()
	subscribing bool
}

// PresenceRouter maps an identity to the set of connections in its room.
// Rooms appear on first join and vanish when the last member drops.
type PresenceRouter struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	conns  map[string]map[string]struct{} // conn id -> identities joined
	bridge Broadcaster
	nodeID string
}

// NewPresenceRouter create a PresenceRouter; bridge may be nil for a single node
func NewPresenceRouter(bridge Broadcaster) *PresenceRouter {
	return &PresenceRouter{
		rooms:  make(map[string]*room),
		conns:  make(map[string]map[string]struct{}),
		bridge: bridge,
		nodeID: uuid.New().String(),
	}
}

// Join add conn to Room(identity); repeated joins are no-ops
func (p *PresenceRouter) Join(ctx context.Context, conn Connection, identity string) error {
	if err := domain.ValidateIdentity("identity", identity); err != nil {
		return err
	}

	p.mu.Lock()
	r, ok := p.rooms[identity]
	if !ok {
		r = &room{members: make(map[string]Connection)}
		p.rooms[identity] = r
	}
	r.members[conn.ID()] = conn

	joined, ok := p.conns[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		p.conns[conn.ID()] = joined
	}
	joined[identity] = struct{}{}

	needSub := p.bridge != nil && r.stop == nil && !r.subscribing
	if needSub {
		r.subscribing = true
	}
	p.mu.Unlock()

	logger.Log.Debug("room join", zap.String("identity", identity), zap.String("conn_id", conn.ID()))

	if needSub {
		p.subscribe(ctx, identity, r)
	}
	return nil
}

// subscribe runs outside the lock; the room may have been collected meanwhile
func (p *PresenceRouter) subscribe(ctx context.Context, identity string, r *room) {
	stop, err := p.bridge.Subscribe(ctx, repository.UserChannel(identity), func(ev domain.RelayEvent) {
		if ev.Origin == p.nodeID {
			return
		}
		p.deliverLocal(identity, ev.Event)
	})

	p.mu.Lock()
	r.subscribing = false
	if err != nil {
		p.mu.Unlock()
		// local delivery keeps working, the next join retries
		logger.Log.Warn("room subscribe failed", zap.String("identity", identity), zap.Error(err))
		return
	}
	if p.rooms[identity] != r {
		p.mu.Unlock()
		stop()
		return
	}
	r.stop = stop
	p.mu.Unlock()
}

// Emit deliver event to every member of Room(identity); an empty room drops it silently
func (p *PresenceRouter) Emit(ctx context.Context, identity string, event domain.WSResponse) error {
	p.deliverLocal(identity, event)

	if p.bridge == nil {
		return nil
	}
	if err := p.bridge.Publish(ctx, repository.UserChannel(identity), domain.RelayEvent{Origin: p.nodeID, Event: event}); err != nil {
		return fmt.Errorf("%w: relay to %s: %v", domain.ErrChannel, identity, err)
	}
	return nil
}

func (p *PresenceRouter) deliverLocal(identity string, event domain.WSResponse) {
	p.mu.RLock()
	r, ok := p.rooms[identity]
	if !ok {
		p.mu.RUnlock()
		return
	}
	members := make([]Connection, 0, len(r.members))
	for _, c := range r.members {
		members = append(members, c)
	}
	p.mu.RUnlock()

	for _, c := range members {
		if err := c.Deliver(event); err != nil {
			logger.Log.Warn("room deliver", zap.String("identity", identity), zap.String("conn_id", c.ID()), zap.Error(err))
		}
	}
}

// Drop remove conn from every room it joined; safe to call more than once
func (p *PresenceRouter) Drop(conn Connection) {
	var stops []func()

	p.mu.Lock()
	for identity := range p.conns[conn.ID()] {
		r, ok := p.rooms[identity]
		if !ok {
			continue
		}
		delete(r.members, conn.ID())
		if len(r.members) == 0 {
			delete(p.rooms, identity)
			if r.stop != nil {
				stops = append(stops, r.stop)
			}
		}
	}
	delete(p.conns, conn.ID())
	p.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// Members number of connections in Room(identity)
func (p *PresenceRouter) Members(identity string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if r, ok := p.rooms[identity]; ok {
		return len(r.members)
	}
	return 0
}

// Rooms identities conn currently joined
func (p *PresenceRouter) Rooms(conn Connection) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.conns[conn.ID()]))
	for identity := range p.conns[conn.ID()] {
		out = append(out, identity)
	}
	return out
}

// Close stop every relay subscription, used on shutdown
func (p *PresenceRouter) Close() {
	p.mu.Lock()
	var stops []func()
	for _, r := range p.rooms {
		if r.stop != nil {
			stops = append(stops, r.stop)
			r.stop = nil
		}
	}
	p.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}
