package app

import (
	"context"

	"service_marketplace/internal/chat/domain"
	memberdomain "service_marketplace/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Append moke append msg
func (m *MockMessageRepository) Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	args := m.Called(ctx, senderID, receiverID, body)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// History moke find pair history
func (m *MockMessageRepository) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// DistinctPeers moke find peers
func (m *MockMessageRepository) DistinctPeers(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPresence Mock Presence
type MockPresence struct {
	mock.Mock
}

// Emit moke emit to room
func (m *MockPresence) Emit(ctx context.Context, identity string, event domain.WSResponse) error {
	args := m.Called(ctx, identity, event)
	return args.Error(0)
}

// MockMemberRepository Mock MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// FindByIDs moke find members
func (m *MockMemberRepository) FindByIDs(ctx context.Context, ids []string) ([]memberdomain.Member, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) != nil {
		return args.Get(0).([]memberdomain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBroadcaster Mock Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

// Publish moke publisher
func (m *MockBroadcaster) Publish(ctx context.Context, channel string, message domain.RelayEvent) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

// Subscribe moke subscriber, the handler is kept so tests can feed relayed events
func (m *MockBroadcaster) Subscribe(ctx context.Context, channel string, handler func(ev domain.RelayEvent)) (func(), error) {
	args := m.Called(channel, handler)
	if args.Get(0) != nil {
		return args.Get(0).(func()), args.Error(1)
	}
	return nil, args.Error(1)
}
