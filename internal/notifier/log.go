package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/observability"
)

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	from          Sender
	subjectPrefix string
	logger        zerolog.Logger
}

// NewLogNotifier constructs a logging provider.
func NewLogNotifier(from Sender, subjectPrefix string, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		from:          from,
		subjectPrefix: subjectPrefix,
		logger:        logger.With().Str("component", "log_notifier").Logger(),
	}
}

// Send logs the message and reports success.
func (l *LogNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		observability.EmailsTotal().WithLabelValues(ProviderLog, "failed").Inc()
		return ErrNoRecipient
	}

	l.logger.Info().
		Str("from", l.from.String()).
		Str("to", maskAddress(msg.To)).
		Str("reply_to", msg.ReplyTo).
		Str("subject", l.subjectPrefix+msg.Subject).
		Msg("email delivered to log")
	l.logger.Debug().Str("to", msg.To).Str("body", msg.Text).Msg("email body")

	observability.EmailsTotal().WithLabelValues(ProviderLog, "sent").Inc()
	return nil
}

// SendBatch logs every message.
func (l *LogNotifier) SendBatch(ctx context.Context, msgs []Message) []Result {
	return sendEach(ctx, l, msgs)
}
