package assess

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Level is the severity of a run message.
type Level int

// Message levels.
const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the level by name in JSON reports.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Message is one user-facing progress or problem report.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// MessageSink receives user-facing run messages.
type MessageSink interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Messages collects run messages in order and mirrors them to a zap logger.
// Safe for concurrent use.
type Messages struct {
	log *zap.Logger

	mu   sync.Mutex
	list []Message
}

// NewMessages creates a collector. A nil logger uses zap.L().
func NewMessages(log *zap.Logger) *Messages {
	if log == nil {
		log = zap.L()
	}
	return &Messages{log: log}
}

// Info implements MessageSink.
func (m *Messages) Info(format string, args ...any) { m.add(LevelInfo, format, args...) }

// Warn implements MessageSink.
func (m *Messages) Warn(format string, args ...any) { m.add(LevelWarn, format, args...) }

// Error implements MessageSink.
func (m *Messages) Error(format string, args ...any) { m.add(LevelError, format, args...) }

// List returns a copy of the collected messages.
func (m *Messages) List() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.list))
	copy(out, m.list)
	return out
}

func (m *Messages) add(level Level, format string, args ...any) {
	text := fmt.Sprintf(format, args...)

	m.mu.Lock()
	m.list = append(m.list, Message{Level: level, Text: text})
	m.mu.Unlock()

	switch level {
	case LevelWarn:
		m.log.Warn(text)
	case LevelError:
		m.log.Error(text)
	default:
		m.log.Info(text)
	}
}
