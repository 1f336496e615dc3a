package websocket

import (
	"encoding/json"

	"socialhub/internal/domain/chat"
	"socialhub/internal/domain/message"
	"socialhub/internal/metrics"
	"socialhub/internal/services"
	"socialhub/internal/transport/httpdto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher pushes server frames to live connections. Enqueueing never
// blocks; a frame refused by a connection is counted as dropped.
type Dispatcher struct {
	registry *Registry
	log      *Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *Registry, log *Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = NewLogger(nil)
	}
	return &Dispatcher{registry: registry, log: log, metrics: m}
}

func encodeFrame(event, requestID string, payload interface{}) ([]byte, error) {
	return json.Marshal(OutboundFrame{Event: event, RequestID: requestID, Data: payload})
}

// BroadcastToMembers delivers one frame to every live connection of every
// member of c. Members without connections are skipped.
func (d *Dispatcher) BroadcastToMembers(c chat.Chat, event string, payload interface{}) {
	data, err := encodeFrame(event, "", payload)
	if err != nil {
		d.log.Error(event, uuid.Nil, "", err, zap.String("chat_id", c.ID.String()))
		return
	}
	for _, memberID := range c.MemberIDs() {
		d.deliver(memberID, event, data)
	}
}

// SendToUsers delivers one frame to every live connection of each user.
func (d *Dispatcher) SendToUsers(userIDs []uuid.UUID, event string, payload interface{}) {
	if len(userIDs) == 0 {
		return
	}
	data, err := encodeFrame(event, "", payload)
	if err != nil {
		d.log.Error(event, uuid.Nil, "", err)
		return
	}
	for _, id := range userIDs {
		d.deliver(id, event, data)
	}
}

func (d *Dispatcher) SendToUser(userID uuid.UUID, event string, payload interface{}) {
	d.SendToUsers([]uuid.UUID{userID}, event, payload)
}

// SendToConnection replies on a single connection, echoing requestID.
func (d *Dispatcher) SendToConnection(conn Connection, requestID, event string, payload interface{}) {
	data, err := encodeFrame(event, requestID, payload)
	if err != nil {
		d.log.Error(event, conn.UserID(), conn.ID(), err)
		return
	}
	d.push(conn, event, data)
}

func (d *Dispatcher) deliver(userID uuid.UUID, event string, data []byte) {
	for _, conn := range d.registry.ConnectionsFor(userID) {
		d.push(conn, event, data)
	}
}

func (d *Dispatcher) push(conn Connection, event string, data []byte) {
	if conn.Send(data) {
		d.metrics.Delivered()
		return
	}
	d.metrics.Dropped()
	d.log.Warn(event, conn.UserID(), conn.ID(), zap.String("reason", "send buffer full or closed"))
}

// PublishDeliveries announces newly persisted messages to their chats.
func (d *Dispatcher) PublishDeliveries(deliveries []services.Delivery) {
	for _, dl := range deliveries {
		d.BroadcastToMembers(dl.Chat, EventMessageDelivered, deliveryPayload(dl.Chat, dl.Message))
	}
}

func (d *Dispatcher) PublishEdited(c chat.Chat, m message.Message) {
	d.BroadcastToMembers(c, EventMessageEdited, deliveryPayload(c, m))
}

func (d *Dispatcher) PublishDeleted(c chat.Chat, m message.Message) {
	d.BroadcastToMembers(c, EventMessageDeleted, deliveryPayload(c, m))
}

// deliveryPayload is rendered without a viewer so every member receives the
// same bytes.
func deliveryPayload(c chat.Chat, m message.Message) httpdto.DeliveryResponse {
	return httpdto.DeliveryResponse{
		Chat:    httpdto.NewChatResponse(c, uuid.Nil),
		Message: httpdto.NewMessageResponse(m),
	}
}
