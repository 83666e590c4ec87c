package app

import (
	"context"
	"errors"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/internal/chat/repository"
	errprocess "service_marketplace/pkg/err"
	"service_marketplace/pkg/logger"

	"go.uber.org/zap"
)

// DefaultPipelineTimeout upper bound of one persist + fan-out run
const DefaultPipelineTimeout = 10 * time.Second

// Presence the fan-out side the delivery pipeline needs
type Presence interface {
	Emit(ctx context.Context, identity string, event domain.WSResponse) error
}

// MessageUseCase persist-then-emit delivery of direct messages
type MessageUseCase struct {
	msgRepo  repository.MessageRepository
	presence Presence
	timeout  time.Duration
}

// NewMessageUseCase create MessageUseCase
func NewMessageUseCase(msgRepo repository.MessageRepository, presence Presence, timeout time.Duration) *MessageUseCase {
	if timeout <= 0 {
		timeout = DefaultPipelineTimeout
	}
	return &MessageUseCase{
		msgRepo:  msgRepo,
		presence: presence,
		timeout:  timeout,
	}
}

// Send persist the message, then push it to the receiver's and the sender's rooms.
// senderID must be the authenticated principal. The pipeline outlives ctx cancellation.
func (uc *MessageUseCase) Send(ctx context.Context, senderID, receiverID, body, clientMsgID string) (*domain.MessageEvent, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
	defer cancel()

	msg, err := uc.msgRepo.Append(runCtx, senderID, receiverID, body)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}

	ev := &domain.MessageEvent{Message: *msg, ClientMsgID: clientMsgID}
	push := domain.NewMessagePush(*ev)

	uc.emit(runCtx, receiverID, push, msg.ID)
	if senderID != receiverID {
		uc.emit(runCtx, senderID, push, msg.ID)
	}

	logger.Log.Info("message delivered",
		zap.String("message_id", msg.ID),
		zap.String("member_id", senderID),
		zap.String("receiver_id", receiverID),
	)
	return ev, nil
}

// emit best effort, the send already succeeded once persisted
func (uc *MessageUseCase) emit(ctx context.Context, identity string, push domain.WSResponse, messageID string) {
	if err := uc.presence.Emit(ctx, identity, push); err != nil {
		logger.Log.Warn("message emit",
			zap.String("message_id", messageID),
			zap.String("identity", identity),
			zap.Error(err),
		)
	}
}

// History conversation between self and peer, oldest first
func (uc *MessageUseCase) History(ctx context.Context, self, peer string) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.History(ctx, self, peer)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}
	return msgs, nil
}
