// Package notify delivers user notifications.
//
// Delivery is fire-and-forget from the caller's point of view: a failed
// notification never undoes the change that triggered it.
package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Message is one notification to one recipient address.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier delivers a message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ErrNoRecipient is returned for a message without an address.
var ErrNoRecipient = errors.New("notify: message has no recipient")

// LogNotifier writes messages to a logger instead of sending them.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses the standard one.
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{log: log}
}

// Notify logs msg at info level.
func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	n.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info(msg.Body)
	return nil
}
