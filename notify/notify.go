// Package notify delivers user-facing toast style messages.
package notify

import (
	"sync"
	"time"
)

type Type string

const (
	Positive Type = "positive"
	Negative Type = "negative"
	Warning  Type = "warning"
	Info     Type = "info"
)

const (
	DefaultPosition = "top"
	DefaultTimeout  = 3 * time.Second
)

type Notification struct {
	Type     Type
	Message  string
	Position string
	Timeout  time.Duration
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Nop drops every notification.
var Nop Notifier = NotifierFunc(func(Notification) {})

func Success(n Notifier, message string) {
	send(n, Positive, message)
}

func Error(n Notifier, message string) {
	send(n, Negative, message)
}

func Warn(n Notifier, message string) {
	send(n, Warning, message)
}

func send(n Notifier, t Type, message string) {
	if n == nil || message == "" {
		return
	}
	n.Notify(Notification{Type: t, Message: message, Position: DefaultPosition, Timeout: DefaultTimeout})
}

// Recorder keeps every notification, for tests and for callers that want to
// render them later.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *Recorder) OfType(t Type) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
