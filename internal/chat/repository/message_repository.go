package repository

import (
	"context"
	"errors"
	"fmt"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg"
	errprocess "service_marketplace/pkg/err"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMessageCollection mongo collection holding chat messages
const DefaultMessageCollection = "messages"

// MessageRepository definition message store
type MessageRepository interface {
	// Append validate and persist one message, id and created_at are assigned here
	Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error)
	// History every message between userA and userB in either direction, oldest first
	History(ctx context.Context, userA, userB string) ([]domain.Message, error)
	// DistinctPeers every identity userID has sent to or received from
	DistinctPeers(ctx context.Context, userID string) ([]string, error)
}

type chatMessageRepository struct {
	coll  *mongo.Collection
	clock *Clock
}

// NewMongoChatMessageRepository create a MessageRepository backed by mongo
func NewMongoChatMessageRepository(db *mongo.Database, collection string, clock *Clock) MessageRepository {
	if collection == "" {
		collection = DefaultMessageCollection
	}
	if clock == nil {
		clock = NewClock(nil)
	}
	return &chatMessageRepository{
		coll:  db.Collection(collection),
		clock: clock,
	}
}

// EnsureMessageIndexes create the pair lookup indexes, safe to call on every start
func EnsureMessageIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	if collection == "" {
		collection = DefaultMessageCollection
	}
	_, err := db.Collection(collection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("pair_created_at"),
		},
		{
			Keys:    bson.D{{Key: "receiver_id", Value: 1}, {Key: "sender_id", Value: 1}},
			Options: options.Index().SetName("receiver_sender"),
		},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}
	return nil
}

func (r *chatMessageRepository) Append(ctx context.Context, senderID, receiverID, body string) (*domain.Message, error) {
	if err := domain.ValidateSend(senderID, receiverID, body); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  r.clock.Next(),
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}
	return msg, nil
}

func (r *chatMessageRepository) History(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	if err := validatePair(userA, userB); err != nil {
		return nil, err
	}

	filter := bson.M{"$or": []bson.M{
		{"sender_id": userA, "receiver_id": userB},
		{"sender_id": userB, "receiver_id": userA},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	messages := []domain.Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}
	return messages, nil
}

func (r *chatMessageRepository) DistinctPeers(ctx context.Context, userID string) ([]string, error) {
	if err := domain.ValidateIdentity("userId", userID); err != nil {
		return nil, err
	}

	// 我是接收者 -> 所有 sender；我是發送者 -> 所有 receiver
	senders, err := r.coll.Distinct(ctx, "sender_id", bson.M{"receiver_id": userID})
	if err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}
	receivers, err := r.coll.Distinct(ctx, "receiver_id", bson.M{"sender_id": userID})
	if err != nil {
		return nil, errprocess.Wrap(domain.ErrStoreUnavailable, err)
	}

	peers := pkg.Union(toStrings(senders), toStrings(receivers))
	if peers == nil {
		peers = []string{}
	}
	return peers, nil
}

func validatePair(userA, userB string) error {
	return errors.Join(
		domain.ValidateIdentity("userA", userA),
		domain.ValidateIdentity("userB", userB),
	)
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
