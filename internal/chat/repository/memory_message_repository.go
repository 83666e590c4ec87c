package repository

import (
	"context"
	"sync"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg"

	"github.com/google/uuid"
)

// memoryMessageRepository in process message store for local runs and tests
type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages []domain.Message
	clock    *Clock
}

// NewMemoryMessageRepository create an in process MessageRepository
func NewMemoryMessageRepository(clock *Clock) MessageRepository {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &memoryMessageRepository{clock: clock}
}

func (r *memoryMessageRepository) Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	if err := domain.ValidateSend(senderID, receiverID, body); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// 在鎖內取時間，寫入順序與 created_at 順序一致
	msg := domain.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  r.clock.Next(),
	}
	r.messages = append(r.messages, msg)
	return &msg, nil
}

func (r *memoryMessageRepository) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	if err := validatePair(userA, userB); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Message{}
	for _, m := range r.messages {
		if m.Involves(userA, userB) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryMessageRepository) DistinctPeers(ctx context.Context, userID string) ([]string, error) {
	if err := domain.ValidateIdentity("userId", userID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var senders, receivers []string
	for _, m := range r.messages {
		if m.ReceiverID == userID {
			senders = append(senders, m.SenderID)
		}
		if m.SenderID == userID {
			receivers = append(receivers, m.ReceiverID)
		}
	}

	peers := pkg.Union(senders, receivers)
	if peers == nil {
		peers = []string{}
	}
	return peers, nil
}
