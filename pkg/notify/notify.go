package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/config"
	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/ctfwatch/ctfwatch/internal/metrics"
	"github.com/ctfwatch/ctfwatch/pkg/models"
	"go.uber.org/zap"
)

// NotificationError is a failed delivery to one recipient.
type NotificationError struct {
	Recipient string
	Status    int
	Err       error
}

func (e *NotificationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("notify %s: status %d: %v", e.Recipient, e.Status, e.Err)
	}
	return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Transport delivers one formatted message to one recipient.
type Transport interface {
	Send(ctx context.Context, recipient, message string) error
}

// DefaultSendTimeout bounds a send when no positive timeout is given.
const DefaultSendTimeout = 10 * time.Second

type Notifier struct {
	transport  Transport
	recipients []string
	timeout    time.Duration
}

func NewNotifier(transport Transport, recipients []string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Notifier{
		transport:  transport,
		recipients: recipients,
		timeout:    timeout,
	}
}

// FromConfig wires the Telegram transport. Without a token the notifier
// only logs.
func FromConfig(cfg *config.NotifyConfig) *Notifier {
	var transport Transport
	if cfg.TelegramToken != "" {
		transport = NewTelegram(cfg.APIURL, cfg.TelegramToken)
	}
	return NewNotifier(transport, cfg.Recipients, cfg.Timeout)
}

// Notify sends one digest of events to every recipient. Delivery failures
// are logged per recipient and never returned.
func (n *Notifier) Notify(ctx context.Context, events []*models.Event) {
	if len(events) == 0 {
		return
	}
	lg := logging.FromContext(ctx)
	if n.transport == nil {
		lg.Warn("notify.skipped", zap.String("reason", "no telegram token configured"))
		return
	}
	if len(n.recipients) == 0 {
		lg.Warn("notify.skipped", zap.String("reason", "no recipients configured"))
		return
	}

	msg := ComposeDigest(events)
	for _, recipient := range n.recipients {
		if err := n.send(ctx, recipient, msg); err != nil {
			metrics.NotificationsSent.WithLabelValues("failed").Inc()
			lg.Error("notify.failed", zap.String("recipient", recipient), zap.Error(err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues("sent").Inc()
	}
	lg.Info("notify.done", zap.Int("events", len(events)), zap.Int("recipients", len(n.recipients)))
}

func (n *Notifier) send(ctx context.Context, recipient, msg string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.transport.Send(ctx, recipient, msg)
}
