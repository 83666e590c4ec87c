package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/config"
	"service_marketplace/pkg/logger"
	"service_marketplace/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 可包含所有需要的 UseCase
type ChatWebsocketHandler struct {
	messageUC   *MessageUseCase
	directoryUC *DirectoryUseCase
	presence    *PresenceRouter
	cfg         config.WebsocketConfig
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	messageUC *MessageUseCase,
	directoryUC *DirectoryUseCase,
	presence *PresenceRouter,
	cfg config.WebsocketConfig,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		messageUC:   messageUC,
		directoryUC: directoryUC,
		presence:    presence,
		cfg:         cfg,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, ok := conn.Locals(middlewares.TokenMemberID).(string)
	if !ok || memberID == "" {
		closeWebSocketConnection(conn, websocket.ClosePolicyViolation, "missing principal")
		return
	}

	client := newWSClient(memberID, h.cfg.Buffer())
	pingPeriod := h.cfg.PingPeriod()
	pongWait := 2 * pingPeriod

	logger.Log.Info("websocket open", zap.String("member_id", memberID), zap.String("conn_id", client.id))

	conn.SetReadLimit(h.cfg.ReadLimit())
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))

	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	//client發出ping, pong 經由 WriteControl 不經過 send queue
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket close frame", zap.String("conn_id", client.id), zap.Int("code", code), zap.String("text", text))
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		client.writePump(conn, websocket.TextMessage, websocket.PingMessage, pingPeriod)
	}()

	dispatcher := newFrameDispatcher(
		func(raw []byte) *domain.WSResponse { return h.handleText(ctx, client, raw) },
		client.reply,
		client.Deliver,
		h.cfg.Buffer(),
	)

	defer func() {
		h.presence.Drop(client)
		dispatcher.stop()
		client.close()
		wg.Wait()
		conn.Close()
		logger.Log.Info("websocket close", zap.String("member_id", memberID), zap.String("conn_id", client.id))
	}()

	for {
		select {
		case <-client.done:
			// write side failed
			return
		default:
		}

		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				//直接斷線 1006
				logger.Log.Warn("websocket read", zap.String("conn_id", client.id), zap.Error(err))
			}
			return
		}

		switch mt {
		case websocket.TextMessage:
			dispatcher.dispatch(message)
		default:
			_ = client.Deliver(*errorResponse("", "unsupported frame type"))
		}
	}
}

// handleText run one request frame; a nil response means nothing goes back
func (h *ChatWebsocketHandler) handleText(ctx context.Context, client *wsClient, raw []byte) *domain.WSResponse {
	var req domain.WSRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse("", "invalid frame")
	}

	resp := &domain.WSResponse{Action: req.Action, RequestID: req.RequestID}
	var err error

	switch domain.Action(req.Action) {
	case domain.JoinRoom:
		identity := req.Identity
		if identity == "" {
			identity = client.memberID
		}
		if identity != client.memberID {
			err = fmt.Errorf("%w: cannot join room of %s", domain.ErrForbidden, identity)
			break
		}
		if err = h.presence.Join(ctx, client, identity); err == nil && req.RequestID == "" {
			return nil
		}

	case domain.SendMessage:
		var ev *domain.MessageEvent
		ev, err = h.messageUC.Send(ctx, client.memberID, req.ReceiverID, req.Body, req.ClientMsgID)
		if err == nil {
			resp.Payload = ev
		}

	case domain.LegacyMessage:
		if req.SenderID != "" && req.SenderID != client.memberID {
			logger.Log.Warn("legacy frame sender ignored",
				zap.String("member_id", client.memberID),
				zap.String("claimed_sender", req.SenderID),
			)
		}
		receiver := req.LegacyReceiverID
		if receiver == "" {
			receiver = req.ReceiverID
		}
		body := req.LegacyBody
		if body == "" {
			body = req.Body
		}
		// the persisted copy reaches this connection as a push, no direct reply
		if _, err = h.messageUC.Send(ctx, client.memberID, receiver, body, req.ClientMsgID); err == nil {
			return nil
		}

	case domain.GetHistory:
		var msgs []domain.Message
		msgs, err = h.messageUC.History(ctx, client.memberID, req.PeerID)
		if err == nil {
			resp.Payload = msgs
		}

	case domain.ListChatPeers:
		var peers []domain.ChatPeer
		peers, err = h.directoryUC.ListPeers(ctx, client.memberID)
		if err == nil {
			resp.Payload = peers
		}

	default:
		return errorResponse(req.RequestID, "unknown action "+req.Action)
	}

	if err != nil {
		logger.Log.Error("websocket action",
			zap.String("member_id", client.memberID),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		resp.Error = errorMessage(err)
		return resp
	}
	resp.Success = true
	return resp
}

func errorResponse(requestID, msg string) *domain.WSResponse {
	return &domain.WSResponse{
		Action:    string(domain.ActionError),
		RequestID: requestID,
		Error:     msg,
	}
}

// errorMessage caller-visible text of a pipeline error, store details stay in the log
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return domain.ErrStoreUnavailable.Error()
	default:
		return err.Error()
	}
}

func closeWebSocketConnection(conn *websocket.Conn, code int, reason string) {
	if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason)); err != nil {
		logger.Log.Warn("websocket close message", zap.Error(err))
	}
	conn.Close()
}
