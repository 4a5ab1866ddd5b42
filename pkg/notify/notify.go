// Package notify delivers short user-facing messages, the terminal and HTTP
// equivalent of toast notifications.
package notify

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Notifier shows short user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Log writes notifications to a logger: successes at info level, errors at
// error level. A nil Logger uses the default logger.
type Log struct {
	Logger *log.Logger
}

func (n Log) Success(msg string) { n.logger().Info(msg) }
func (n Log) Error(msg string)   { n.logger().Error(msg) }

func (n Log) logger() *log.Logger {
	if n.Logger == nil {
		return log.Default()
	}
	return n.Logger
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Success(string) {}
func (Nop) Error(string)   {}

// Message is one recorded notification.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Levels of a Message.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Recorder keeps notifications in memory so they can be returned with an
// HTTP response or shown in a status line. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

func (r *Recorder) add(level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

// Drain returns the recorded messages and forgets them.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}

// Multi fans notifications out to several notifiers.
type Multi []Notifier

func (m Multi) Success(msg string) {
	for _, n := range m {
		n.Success(msg)
	}
}

func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
