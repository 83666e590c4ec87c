package domain

// Action websocket request action
type Action string

const (
	// JoinRoom websocket action join
	JoinRoom Action = "join"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// LegacyMessage push-only frame of old clients, rerouted to SendMessage
	LegacyMessage Action = "message"
	// GetHistory websocket action get_history
	GetHistory Action = "get_history"
	// ListChatPeers websocket action list_chat_peers
	ListChatPeers Action = "list_chat_peers"

	// NotifyMessage server push of a persisted message
	NotifyMessage Action = "message"
	// ActionError response to an unreadable or unknown frame
	ActionError Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action      string `json:"action"`
	RequestID   string `json:"request_id,omitempty"`
	Identity    string `json:"identity,omitempty"`
	ReceiverID  string `json:"receiver_id,omitempty"`
	Body        string `json:"body,omitempty"`
	ClientMsgID string `json:"client_msg_id,omitempty"`
	PeerID      string `json:"peer_id,omitempty"`

	// legacy push-only frame fields, sender is never trusted
	SenderID         string `json:"senderId,omitempty"`
	LegacyReceiverID string `json:"receiverId,omitempty"`
	LegacyBody       string `json:"message,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action    string      `json:"action"`
	RequestID string      `json:"request_id,omitempty"`
	Success   bool        `json:"success"`
	Payload   interface{} `json:"payload,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewMessagePush build the push envelope of a persisted message
func NewMessagePush(ev MessageEvent) WSResponse {
	return WSResponse{
		Action:  string(NotifyMessage),
		Success: true,
		Payload: ev,
	}
}

// RelayEvent push relayed between chat nodes, Origin lets a node skip its own publishes
type RelayEvent struct {
	Origin string     `json:"origin"`
	Event  WSResponse `json:"event"`
}
