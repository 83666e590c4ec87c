package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxIdentityLength upper bound of an identity reference
	MaxIdentityLength = 128
	// MaxBodyLength upper bound of a message body, in runes
	MaxBodyLength = 4000
)

// Message 表示一則已持久化的聊天訊息
type Message struct {
	ID         string    `bson:"_id" json:"id"`
	SenderID   string    `bson:"sender_id" json:"senderId"`
	ReceiverID string    `bson:"receiver_id" json:"receiverId"`
	Body       string    `bson:"body" json:"body"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// Counterpart the other identity of the message, seen from self
func (m Message) Counterpart(self string) string {
	if m.SenderID == self {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves report whether the message belongs to the {a,b} pair
func (m Message) Involves(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// MessageEvent push payload delivered to both rooms after a message is persisted
type MessageEvent struct {
	Message
	// ClientMsgID correlation id chosen by the sending client, echoed back untouched
	ClientMsgID string `json:"clientMsgId,omitempty"`
}

// ChatPeer chat directory entry
type ChatPeer struct {
	Identity    string `json:"_id"`
	DisplayName string `json:"fullname"`
	Type        string `json:"type"`
}

// PeerTypeUser directory entry type
const PeerTypeUser = "user"

// ValidateIdentity identities are opaque but must be non-empty, bounded and free of whitespace
func ValidateIdentity(field, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if len(id) > MaxIdentityLength {
		return fmt.Errorf("%w: %s is too long", ErrValidation, field)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %s is malformed", ErrValidation, field)
		}
	}
	return nil
}

// ValidateSend check a send request before it reaches the store
func ValidateSend(senderID, receiverID, body string) error {
	if err := ValidateIdentity("senderId", senderID); err != nil {
		return err
	}
	if err := ValidateIdentity("receiverId", receiverID); err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: message body is empty", ErrValidation)
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return fmt.Errorf("%w: message body is too long", ErrValidation)
	}
	return nil
}
