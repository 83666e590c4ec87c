package app

import (
	"encoding/json"
	"fmt"
	"sync"

	"service_marketplace/internal/chat/domain"
)

// maxConcurrentReads history / directory frames one connection may have in flight
const maxConcurrentReads = 4

// frameHead the part of a frame needed to pick a worker
type frameHead struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
}

// frameDispatcher runs the frames of one connection off the read loop.
// Join and send frames keep arrival order on a single worker; reads run concurrently.
type frameDispatcher struct {
	handle  func(raw []byte) *domain.WSResponse
	reply   func(domain.WSResponse) error
	reject  func(domain.WSResponse) error
	ordered chan []byte
	reads   chan struct{}
	wg      sync.WaitGroup
}

// newFrameDispatcher handle runs one frame, reply queues its response (may wait),
// reject queues a busy response without waiting
func newFrameDispatcher(
	handle func(raw []byte) *domain.WSResponse,
	reply func(domain.WSResponse) error,
	reject func(domain.WSResponse) error,
	queue int,
) *frameDispatcher {
	if queue <= 0 {
		queue = 1
	}
	d := &frameDispatcher{
		handle:  handle,
		reply:   reply,
		reject:  reject,
		ordered: make(chan []byte, queue),
		reads:   make(chan struct{}, maxConcurrentReads),
	}
	d.wg.Add(1)
	go d.runOrdered()
	return d
}

func (d *frameDispatcher) runOrdered() {
	defer d.wg.Done()
	for raw := range d.ordered {
		d.run(raw)
	}
}

func (d *frameDispatcher) run(raw []byte) {
	if resp := d.handle(raw); resp != nil {
		_ = d.reply(*resp)
	}
}

// dispatch hand raw to a worker; never waits for a handler
func (d *frameDispatcher) dispatch(raw []byte) {
	var head frameHead
	_ = json.Unmarshal(raw, &head)

	switch domain.Action(head.Action) {
	case domain.GetHistory, domain.ListChatPeers:
		select {
		case d.reads <- struct{}{}:
		default:
			d.busy(head)
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() { <-d.reads }()
			d.run(raw)
		}()

	default:
		select {
		case d.ordered <- raw:
		default:
			d.busy(head)
		}
	}
}

func (d *frameDispatcher) busy(head frameHead) {
	err := fmt.Errorf("%w: too many pending requests", domain.ErrChannel)
	_ = d.reject(*errorResponse(head.RequestID, err.Error()))
}

// stop wait for every accepted frame; dispatch must not be called afterwards
func (d *frameDispatcher) stop() {
	close(d.ordered)
	d.wg.Wait()
}
