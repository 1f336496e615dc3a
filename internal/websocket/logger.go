package websocket

import (
	"socialhub/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger provides structured logging for WebSocket events
type Logger struct {
	logger *zap.Logger
}

func NewLogger(l *logger.Logger) *Logger {
	if l == nil {
		l = logger.NewNop()
	}
	return &Logger{logger: l.Named("websocket")}
}

func (l *Logger) fields(event string, userID uuid.UUID, connID string, extra []zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("event", event),
		zap.String("user_id", userID.String()),
		zap.String("conn_id", connID),
	}, extra...)
}

func (l *Logger) Info(event string, userID uuid.UUID, connID string, fields ...zap.Field) {
	l.logger.Info("websocket_event", l.fields(event, userID, connID, fields)...)
}

func (l *Logger) Warn(event string, userID uuid.UUID, connID string, fields ...zap.Field) {
	l.logger.Warn("websocket_warning", l.fields(event, userID, connID, fields)...)
}

func (l *Logger) Error(event string, userID uuid.UUID, connID string, err error, fields ...zap.Field) {
	l.logger.Error("websocket_error", l.fields(event, userID, connID, append(fields, zap.Error(err)))...)
}
