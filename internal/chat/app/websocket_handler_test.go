package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/internal/chat/repository"
	memberdomain "service_marketplace/internal/member/domain"
	memberrepo "service_marketplace/internal/member/repository"
	"service_marketplace/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFixture struct {
	handler  *ChatWebsocketHandler
	presence *PresenceRouter
	store    repository.MessageRepository
}

func newWSFixture() *wsFixture {
	store := repository.NewMemoryMessageRepository(nil)
	presence := NewPresenceRouter(nil)
	members := memberrepo.NewMemoryMemberRepository(
		memberdomain.Member{MemberID: "alice", Fullname: "Alice"},
		memberdomain.Member{MemberID: "bob", Fullname: "Bob"},
	)
	messageUC := NewMessageUseCase(store, presence, time.Second)
	return &wsFixture{
		handler:  NewChatWebsocketHandler(messageUC, NewDirectoryUseCase(store, members), presence, config.WebsocketConfig{}),
		presence: presence,
		store:    store,
	}
}

func frameOf(t *testing.T, req domain.WSRequest) []byte {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func drain(c *wsClient) []domain.WSResponse {
	var out []domain.WSResponse
	for {
		select {
		case b := <-c.send:
			var resp domain.WSResponse
			_ = json.Unmarshal(b, &resp)
			out = append(out, resp)
		default:
			return out
		}
	}
}

func TestHandleText_JoinOwnRoom(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice := newWSClient("alice", 8)

	// silent join
	resp := f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{Action: "join"}))
	assert.Nil(t, resp)
	assert.Equal(t, 1, f.presence.Members("alice"))

	// acked join
	resp = f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{Action: "join", RequestID: "r1", Identity: "alice"}))
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, 1, f.presence.Members("alice"))
}

func TestHandleText_JoinForeignRoomForbidden(t *testing.T) {
	f := newWSFixture()
	alice := newWSClient("alice", 8)

	resp := f.handler.handleText(context.Background(), alice, frameOf(t, domain.WSRequest{Action: "join", Identity: "bob"}))
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, domain.ErrForbidden.Error())
	assert.Equal(t, 0, f.presence.Members("bob"))
}

func TestHandleText_SendMessageRepliesAndPushesBothRooms(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice, bob := newWSClient("alice", 8), newWSClient("bob", 8)
	require.NoError(t, f.presence.Join(ctx, alice, "alice"))
	require.NoError(t, f.presence.Join(ctx, bob, "bob"))

	resp := f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{
		Action:      "send_message",
		RequestID:   "r1",
		ReceiverID:  "bob",
		Body:        "hi",
		ClientMsgID: "c-1",
	}))
	require.NotNil(t, resp)
	require.True(t, resp.Success, resp.Error)
	ev := resp.Payload.(*domain.MessageEvent)
	assert.Equal(t, "alice", ev.SenderID)
	assert.Equal(t, "c-1", ev.ClientMsgID)

	bobPushes := drain(bob)
	alicePushes := drain(alice)
	require.Len(t, bobPushes, 1)
	require.Len(t, alicePushes, 1)
	assert.Equal(t, string(domain.NotifyMessage), bobPushes[0].Action)
	assert.Equal(t, bobPushes[0].Payload, alicePushes[0].Payload)
}

func TestHandleText_SendMessageSenderIsPrincipal(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice := newWSClient("alice", 8)

	// sender fields in the frame never override the connection's member
	resp := f.handler.handleText(ctx, alice, []byte(`{"action":"send_message","receiver_id":"bob","body":"hi","senderId":"mallory"}`))
	require.NotNil(t, resp)
	require.True(t, resp.Success)

	history, err := f.store.History(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].SenderID)
}

func TestHandleText_SendMessageValidation(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice := newWSClient("alice", 8)
	require.NoError(t, f.presence.Join(ctx, alice, "alice"))

	resp := f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{Action: "send_message", ReceiverID: "bob", Body: "   "}))
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, domain.ErrValidation.Error())
	assert.Empty(t, drain(alice))
}

func TestHandleText_LegacyFramePersistsWithPrincipal(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice, bob := newWSClient("alice", 8), newWSClient("bob", 8)
	require.NoError(t, f.presence.Join(ctx, alice, "alice"))
	require.NoError(t, f.presence.Join(ctx, bob, "bob"))

	resp := f.handler.handleText(ctx, alice, []byte(`{"action":"message","senderId":"mallory","receiverId":"bob","message":"old client"}`))
	assert.Nil(t, resp)

	history, err := f.store.History(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].SenderID)
	assert.Equal(t, "old client", history[0].Body)

	assert.Len(t, drain(bob), 1)
	assert.Len(t, drain(alice), 1)
}

func TestHandleText_HistoryAndPeers(t *testing.T) {
	f := newWSFixture()
	ctx := context.Background()
	alice := newWSClient("alice", 8)

	_, err := f.store.Append(ctx, "alice", "bob", "one")
	require.NoError(t, err)
	_, err = f.store.Append(ctx, "bob", "alice", "two")
	require.NoError(t, err)

	resp := f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{Action: "get_history", RequestID: "h", PeerID: "bob"}))
	require.NotNil(t, resp)
	require.True(t, resp.Success)
	msgs := resp.Payload.([]domain.Message)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Body)
	assert.Equal(t, "two", msgs[1].Body)

	resp = f.handler.handleText(ctx, alice, frameOf(t, domain.WSRequest{Action: "list_chat_peers", RequestID: "p"}))
	require.NotNil(t, resp)
	require.True(t, resp.Success)
	assert.Equal(t, []domain.ChatPeer{{Identity: "bob", DisplayName: "Bob", Type: domain.PeerTypeUser}}, resp.Payload)
}

func TestHandleText_UnknownAndMalformed(t *testing.T) {
	f := newWSFixture()
	alice := newWSClient("alice", 8)

	resp := f.handler.handleText(context.Background(), alice, frameOf(t, domain.WSRequest{Action: "typing", RequestID: "x"}))
	require.NotNil(t, resp)
	assert.Equal(t, string(domain.ActionError), resp.Action)
	assert.Equal(t, "x", resp.RequestID)
	assert.False(t, resp.Success)

	resp = f.handler.handleText(context.Background(), alice, []byte("{not json"))
	require.NotNil(t, resp)
	assert.Equal(t, string(domain.ActionError), resp.Action)
}
