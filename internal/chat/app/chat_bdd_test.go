package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/internal/chat/repository"
	memberdomain "service_marketplace/internal/member/domain"
	memberrepo "service_marketplace/internal/member/repository"

	"github.com/cucumber/godog"
)

func TestChatFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeChatScenario,
		Options: &godog.Options{
			Paths:    []string{"features"},
			Format:   "pretty",
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// chatWorld state of one scenario
type chatWorld struct {
	store     repository.MessageRepository
	presence  *PresenceRouter
	messageUC *MessageUseCase
	directory *DirectoryUseCase
	conns     map[string]*fakeConn
	lastErr   error
	peers     []domain.ChatPeer
}

func newChatWorld() *chatWorld {
	store := repository.NewMemoryMessageRepository(nil)
	presence := NewPresenceRouter(nil)
	members := memberrepo.NewMemoryMemberRepository(
		memberdomain.Member{MemberID: "alice", Fullname: "Alice"},
		memberdomain.Member{MemberID: "bob", Fullname: "Bob"},
		memberdomain.Member{MemberID: "carol", Fullname: "Carol"},
	)
	return &chatWorld{
		store:     store,
		presence:  presence,
		messageUC: NewMessageUseCase(store, presence, time.Second),
		directory: NewDirectoryUseCase(store, members),
		conns:     make(map[string]*fakeConn),
	}
}

func (w *chatWorld) hasNoOpenConnection(member string) error {
	if n := w.presence.Members(member); n != 0 {
		return fmt.Errorf("%s has %d connections", member, n)
	}
	return nil
}

func (w *chatWorld) isConnected(member string) error {
	c := newFakeConn(member + "-tab")
	w.conns[member] = c
	return w.presence.Join(context.Background(), c, member)
}

func (w *chatWorld) sends(sender, body, receiver string) error {
	_, w.lastErr = w.messageUC.Send(context.Background(), sender, receiver, body, "")
	return nil
}

func (w *chatWorld) sendSucceeds() error {
	return w.lastErr
}

func (w *chatWorld) sendFailsWithValidation() error {
	if !errors.Is(w.lastErr, domain.ErrValidation) {
		return fmt.Errorf("expected validation error, got %v", w.lastErr)
	}
	return nil
}

func (w *chatWorld) historyIs(a, b, bodies string) error {
	msgs, err := w.store.History(context.Background(), a, b)
	if err != nil {
		return err
	}
	got := make([]string, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, m.Body)
	}
	if strings.Join(got, ",") != bodies {
		return fmt.Errorf("history %v, want %s", got, bodies)
	}
	return nil
}

func (w *chatWorld) historyHas(a, b string, n int) error {
	msgs, err := w.store.History(context.Background(), a, b)
	if err != nil {
		return err
	}
	if len(msgs) != n {
		return fmt.Errorf("history has %d messages, want %d", len(msgs), n)
	}
	return nil
}

func (w *chatWorld) noPushTo(member string) error {
	if c, ok := w.conns[member]; ok && c.received() != 0 {
		return fmt.Errorf("%s received %d pushes", member, c.received())
	}
	return nil
}

func (w *chatWorld) bothReceive(a, b, body string) error {
	var created []time.Time
	for _, member := range []string{a, b} {
		c, ok := w.conns[member]
		if !ok {
			return fmt.Errorf("%s is not connected", member)
		}
		if c.received() != 1 {
			return fmt.Errorf("%s received %d pushes, want 1", member, c.received())
		}
		resp := <-c.events
		ev, ok := resp.Payload.(domain.MessageEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", resp.Payload)
		}
		if ev.Body != body {
			return fmt.Errorf("%s got body %q", member, ev.Body)
		}
		created = append(created, ev.CreatedAt)
	}
	if !created[0].Equal(created[1]) {
		return fmt.Errorf("createdAt differs: %v vs %v", created[0], created[1])
	}
	return nil
}

func (w *chatWorld) listsPeers(member string) error {
	var err error
	w.peers, err = w.directory.ListPeers(context.Background(), member)
	return err
}

func (w *chatWorld) peersAre(names string) error {
	got := make([]string, 0, len(w.peers))
	for _, p := range w.peers {
		got = append(got, p.DisplayName)
	}
	if strings.Join(got, ",") != names {
		return fmt.Errorf("peers %v, want %s", got, names)
	}
	return nil
}

// InitializeChatScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeChatScenario(s *godog.ScenarioContext) {
	var w *chatWorld
	s.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		w = newChatWorld()
		return ctx, nil
	})

	s.Step(`^"([^"]*)" has no open connection$`, func(m string) error { return w.hasNoOpenConnection(m) })
	s.Step(`^"([^"]*)" is connected$`, func(m string) error { return w.isConnected(m) })
	s.Step(`^"([^"]*)" sends "([^"]*)" to "([^"]*)"$`, func(a, body, b string) error { return w.sends(a, body, b) })
	s.Step(`^the send succeeds$`, func() error { return w.sendSucceeds() })
	s.Step(`^the send fails with a validation error$`, func() error { return w.sendFailsWithValidation() })
	s.Step(`^the history between "([^"]*)" and "([^"]*)" is "([^"]*)"$`, func(a, b, bodies string) error { return w.historyIs(a, b, bodies) })
	s.Step(`^the history between "([^"]*)" and "([^"]*)" has (\d+) messages?$`, func(a, b string, n int) error { return w.historyHas(a, b, n) })
	s.Step(`^no push was delivered to "([^"]*)"$`, func(m string) error { return w.noPushTo(m) })
	s.Step(`^"([^"]*)" and "([^"]*)" both receive a push with body "([^"]*)" and the same createdAt$`, func(a, b, body string) error { return w.bothReceive(a, b, body) })
	s.Step(`^"([^"]*)" lists her chat peers$`, func(m string) error { return w.listsPeers(m) })
	s.Step(`^the peers are "([^"]*)"$`, func(names string) error { return w.peersAre(names) })
}
