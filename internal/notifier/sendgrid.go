package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/noah-isme/exeats-api/internal/observability"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridNotifier delivers mail through the SendGrid v3 API.
type SendgridNotifier struct {
	key           string
	host          string
	from          *sgmail.Email
	subjectPrefix string
	logger        zerolog.Logger
}

// NewSendgridNotifier constructs a SendGrid provider. An empty host targets
// the public API.
func NewSendgridNotifier(key, host string, from Sender, subjectPrefix string, logger zerolog.Logger) *SendgridNotifier {
	if host == "" {
		host = sendgridHost
	}
	return &SendgridNotifier{
		key:           key,
		host:          host,
		from:          sgmail.NewEmail(from.Name, from.Address),
		subjectPrefix: subjectPrefix,
		logger:        logger.With().Str("component", "sendgrid_notifier").Logger(),
	}
}

// Send delivers a single message.
func (s *SendgridNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		observability.EmailsTotal().WithLabelValues(ProviderSendgrid, "failed").Inc()
		return ErrNoRecipient
	}

	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		observability.EmailsTotal().WithLabelValues(ProviderSendgrid, "failed").Inc()
		s.logger.Error().Err(err).Str("to", maskAddress(msg.To)).Msg("sending email failed")
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		observability.EmailsTotal().WithLabelValues(ProviderSendgrid, "failed").Inc()
		s.logger.Error().Int("status", res.StatusCode).Str("to", maskAddress(msg.To)).Msg("sendgrid rejected email")
		return fmt.Errorf("sendgrid rejected email: status %d: %s", res.StatusCode, res.Body)
	}

	observability.EmailsTotal().WithLabelValues(ProviderSendgrid, "sent").Inc()
	return nil
}

// SendBatch delivers each message in turn.
func (s *SendgridNotifier) SendBatch(ctx context.Context, msgs []Message) []Result {
	return sendEach(ctx, s, msgs)
}

func (s *SendgridNotifier) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjectPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	return m
}
