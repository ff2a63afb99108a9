// Package notify delivers short user-visible messages, the equivalent of a
// transient toast.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notifier interface {
	Notify(level Level, message string)
}

// Error is shorthand for n.Notify(LevelError, message) that tolerates a nil
// notifier.
func Error(n Notifier, message string) {
	if n != nil && message != "" {
		n.Notify(LevelError, message)
	}
}

func Success(n Notifier, message string) {
	if n != nil && message != "" {
		n.Notify(LevelSuccess, message)
	}
}

type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(level Level, message string) {
	if level == LevelError {
		n.logger.Warn("notify", "message", message)
		return
	}
	n.logger.Info("notify", "level", string(level), "message", message)
}

// WriterNotifier prints one line per message, prefixed for errors.
type WriterNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (n *WriterNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if level == LevelError {
		fmt.Fprintf(n.out, "✗ %s\n", message)
		return
	}
	fmt.Fprintf(n.out, "%s\n", message)
}

type Message struct {
	Level   Level
	Message string
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Message: message})
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
