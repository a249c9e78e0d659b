// Package notifier delivers transactional email for invitations and booking
// confirmations. Callers depend only on the Notifier interface; the provider
// is chosen once at start-up.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Supported providers.
const (
	ProviderLog      = "log"
	ProviderSendgrid = "sendgrid"
)

// ErrNoRecipient is returned for messages without a destination address.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	ReplyTo string
}

// Result is the per-recipient outcome of a batch send.
type Result struct {
	Recipient string
	Err       error
}

// Sent reports whether the message was accepted by the provider.
func (r Result) Sent() bool {
	return r.Err == nil
}

// Notifier sends email.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
	// SendBatch attempts every message and reports each outcome in order.
	SendBatch(ctx context.Context, msgs []Message) []Result
}

// Options selects and configures a provider.
type Options struct {
	Provider          string
	SendgridAPIKey    string
	SendgridHost      string
	FromName          string
	FromAddress       string
	SubjectPrefix     string
	OverrideRecipient string
}

// New builds the configured provider and wraps it with the recipient policy.
func New(opts Options, logger zerolog.Logger) (Notifier, error) {
	from := Sender{Name: opts.FromName, Address: opts.FromAddress}

	var base Notifier
	switch strings.ToLower(opts.Provider) {
	case "", ProviderLog:
		base = NewLogNotifier(from, opts.SubjectPrefix, logger)
	case ProviderSendgrid:
		if opts.SendgridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid api key must be provided")
		}
		base = NewSendgridNotifier(opts.SendgridAPIKey, opts.SendgridHost, from, opts.SubjectPrefix, logger)
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", opts.Provider)
	}

	resolve := Identity
	if opts.OverrideRecipient != "" {
		resolve = OverrideRecipient(opts.OverrideRecipient)
		logger.Warn().Str("override", opts.OverrideRecipient).Msg("all outbound email is redirected")
	}

	return WithRecipientResolver(base, resolve), nil
}

// Sender is the From identity of outbound mail.
type Sender struct {
	Name    string
	Address string
}

func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

func sendEach(ctx context.Context, n Notifier, msgs []Message) []Result {
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		results = append(results, Result{Recipient: msg.To, Err: n.Send(ctx, msg)})
	}
	return results
}

func maskAddress(email string) string {
	local, domain, found := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	if !found || local == "" {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
