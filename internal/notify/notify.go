// Package notify delivers reports. Delivery is best effort: failures are
// logged and never retried.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Sender delivers one formatted message
type Sender interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Notifier fans a message out to every sender
type Notifier struct {
	senders []Sender
}

// NewNotifier creates a notifier over the given senders
func NewNotifier(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// Dispatch sends text to every sender and returns how many accepted it.
// A failing sender does not stop delivery to the rest.
func (n *Notifier) Dispatch(ctx context.Context, text string) int {
	logger := log.Ctx(ctx)
	delivered := 0
	for _, s := range n.senders {
		if err := s.Send(ctx, text); err != nil {
			logger.Error().Err(err).Str("sender", s.Name()).Msg("❌ Failed to send report")
			continue
		}
		delivered++
		logger.Debug().Str("sender", s.Name()).Int("bytes", len(text)).Msg("Report sent")
	}
	return delivered
}

// LogSender writes reports to the log instead of a chat, for dry runs
type LogSender struct{}

func (LogSender) Send(ctx context.Context, text string) error {
	log.Ctx(ctx).Info().Msg("📨 [DRY RUN] report\n" + text)
	return nil
}

func (LogSender) Name() string { return "log" }
