package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/metrics"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatDirectory interface {
	FindOrCreate(ctx context.Context, userA, userB uuid.UUID) (chat.Chat, error)
	ListForUser(ctx context.Context, userID uuid.UUID, search string) ([]chat.Chat, error)
	GetByID(ctx context.Context, userID, chatID uuid.UUID) (chat.Chat, error)
}

type MessageStore interface {
	Send(ctx context.Context, authorID uuid.UUID, req services.SendRequest) ([]services.Delivery, error)
	EditMessage(ctx context.Context, messageID, authorID uuid.UUID, content string) (chat.Chat, message.Message, error)
	DeleteMessage(ctx context.Context, messageID, authorID uuid.UUID) (chat.Chat, message.Message, error)
}

type HistoryPager interface {
	Page(ctx context.Context, userID, chatID uuid.UUID, cursor *services.Cursor, limit int) (services.MessagePage, error)
}

// Router decodes client frames and runs the matching operation. Replies and
// errors go to the originating connection; mutations fan out to the chat.
type Router struct {
	chats      ChatDirectory
	messages   MessageStore
	history    HistoryPager
	dispatcher *Dispatcher
	metrics    *metrics.Metrics
	log        *Logger
}

func NewRouter(chats ChatDirectory, messages MessageStore, history HistoryPager, dispatcher *Dispatcher, m *metrics.Metrics, log *Logger) *Router {
	if log == nil {
		log = NewLogger(nil)
	}
	return &Router{
		chats:      chats,
		messages:   messages,
		history:    history,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log,
	}
}

// Handle processes one raw frame to completion.
func (r *Router) Handle(ctx context.Context, conn Connection, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		r.fail(conn, "", "", fmt.Errorf("malformed frame: %w", socialhub_errors.ErrInvalidInput))
		return
	}

	err := r.dispatch(ctx, conn, frame)
	r.metrics.EventHandled(metricLabel(frame.Event), err == nil)
	if err != nil {
		r.fail(conn, frame.RequestID, frame.Event, err)
	}
}

func (r *Router) dispatch(ctx context.Context, conn Connection, frame InboundFrame) error {
	userID := conn.UserID()

	switch frame.Event {
	case EventPing:
		r.dispatcher.SendToConnection(conn, frame.RequestID, EventPong, nil)
		return nil

	case EventMessageSend:
		var req SendMessagePayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		deliveries, err := r.messages.Send(ctx, userID, req)
		if err != nil {
			return err
		}
		for _, d := range deliveries {
			r.metrics.MessagePersisted(d.Message.Type)
		}
		r.dispatcher.PublishDeliveries(deliveries)
		r.ack(conn, frame.RequestID, deliveryIDs(deliveries))
		return nil

	case EventMessageEdit:
		var req EditMessagePayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		c, m, err := r.messages.EditMessage(ctx, req.MessageID, userID, req.Content)
		if err != nil {
			return err
		}
		r.dispatcher.PublishEdited(c, m)
		r.ack(conn, frame.RequestID, []uuid.UUID{m.ID})
		return nil

	case EventMessageDelete:
		var req DeleteMessagePayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		c, m, err := r.messages.DeleteMessage(ctx, req.MessageID, userID)
		if err != nil {
			return err
		}
		r.dispatcher.PublishDeleted(c, m)
		r.ack(conn, frame.RequestID, []uuid.UUID{m.ID})
		return nil

	case EventHistoryPage:
		var req HistoryPagePayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		cursor, err := services.ParseCursor(req.Cursor)
		if err != nil {
			return err
		}
		page, err := r.history.Page(ctx, userID, req.ChatID, cursor, req.Limit)
		if err != nil {
			return err
		}
		r.dispatcher.SendToConnection(conn, frame.RequestID, EventHistoryPage, httpdto.NewMessagePageResponse(page))
		return nil

	case EventChatList:
		var req ChatListPayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		chats, err := r.chats.ListForUser(ctx, userID, req.Query)
		if err != nil {
			return err
		}
		r.dispatcher.SendToConnection(conn, frame.RequestID, EventChatList, httpdto.NewChatResponses(chats, userID))
		return nil

	case EventChatGet:
		var req ChatGetPayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		c, err := r.chats.GetByID(ctx, userID, req.ChatID)
		if err != nil {
			return err
		}
		r.dispatcher.SendToConnection(conn, frame.RequestID, EventChatGet, httpdto.NewChatResponse(c, userID))
		return nil

	case EventChatOpen:
		var req ChatOpenPayload
		if err := decode(frame.Data, &req); err != nil {
			return err
		}
		c, err := r.chats.FindOrCreate(ctx, userID, req.RecipientID)
		if err != nil {
			return err
		}
		r.dispatcher.SendToConnection(conn, frame.RequestID, EventChatOpen, httpdto.NewChatResponse(c, userID))
		return nil

	default:
		return fmt.Errorf("unknown event %q: %w", frame.Event, socialhub_errors.ErrInvalidInput)
	}
}

func (r *Router) ack(conn Connection, requestID string, ids []uuid.UUID) {
	if requestID == "" {
		return
	}
	r.dispatcher.SendToConnection(conn, requestID, EventAck, SendAck{MessageIDs: ids})
}

func (r *Router) fail(conn Connection, requestID, event string, err error) {
	if services.HTTPStatus(err) == 500 {
		r.log.Error(event, conn.UserID(), conn.ID(), err)
	} else {
		r.log.Info(event, conn.UserID(), conn.ID(), zap.String("rejected", err.Error()))
	}
	r.dispatcher.SendToConnection(conn, requestID, EventError, ErrorPayload{
		Reason: services.PublicMessage(err),
		Code:   services.ErrorCode(err),
	})
}

var clientEvents = map[string]bool{
	EventMessageSend:   true,
	EventMessageEdit:   true,
	EventMessageDelete: true,
	EventHistoryPage:   true,
	EventChatList:      true,
	EventChatGet:       true,
	EventChatOpen:      true,
	EventPing:          true,
}

// metricLabel keeps client-chosen event names out of metric labels.
func metricLabel(event string) string {
	if clientEvents[event] {
		return event
	}
	return "unknown"
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed data: %w", socialhub_errors.ErrInvalidInput)
	}
	return nil
}

func deliveryIDs(deliveries []services.Delivery) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(deliveries))
	for _, d := range deliveries {
		ids = append(ids, d.Message.ID)
	}
	return ids
}
