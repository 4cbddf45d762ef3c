// Package notify delivers user-facing notices: it logs them, keeps a short
// history and pushes them to connected websocket clients.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notice struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Sink receives every notice. Implementations must not block.
type Sink interface {
	Deliver(Notice)
}

// Notifier implements host.Notifier over a set of sinks.
type Notifier struct {
	sinks  []Sink
	logger *zap.Logger
}

func New(logger *zap.Logger, sinks ...Sink) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sinks: sinks, logger: logger}
}

func (n *Notifier) Info(msg string)    { n.emit(LevelInfo, msg) }
func (n *Notifier) Warn(msg string)    { n.emit(LevelWarn, msg) }
func (n *Notifier) Success(msg string) { n.emit(LevelSuccess, msg) }
func (n *Notifier) Error(msg string)   { n.emit(LevelError, msg) }

func (n *Notifier) emit(level Level, msg string) {
	notice := Notice{
		ID:      uuid.NewString(),
		Level:   level,
		Message: msg,
		At:      time.Now(),
	}

	fields := []zap.Field{zap.String("level", string(level)), zap.String("id", notice.ID)}
	switch level {
	case LevelError:
		n.logger.Error(msg, fields...)
	case LevelWarn:
		n.logger.Warn(msg, fields...)
	default:
		n.logger.Info(msg, fields...)
	}

	for _, s := range n.sinks {
		n.deliver(s, notice)
	}
}

// deliver isolates sink failures; a broken sink never reaches the caller.
func (n *Notifier) deliver(s Sink, notice Notice) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("notice sink panicked", zap.Any("panic", r))
		}
	}()
	s.Deliver(notice)
}
