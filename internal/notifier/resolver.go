package notifier

import (
	"context"
	"strings"
)

// RecipientResolver maps the intended recipient to the address mail is
// actually delivered to.
type RecipientResolver func(email string) string

// Identity delivers to the intended recipient.
func Identity(email string) string {
	return email
}

// OverrideRecipient sends every message to address, whoever it was meant for.
func OverrideRecipient(address string) RecipientResolver {
	address = strings.TrimSpace(address)
	return func(string) string {
		return address
	}
}

type resolvingNotifier struct {
	next    Notifier
	resolve RecipientResolver
}

// WithRecipientResolver applies resolve to each message immediately before
// handing it to next. Batch results keep the intended recipient so callers
// can report per-student outcomes.
func WithRecipientResolver(next Notifier, resolve RecipientResolver) Notifier {
	if resolve == nil {
		resolve = Identity
	}
	return &resolvingNotifier{next: next, resolve: resolve}
}

func (n *resolvingNotifier) Send(ctx context.Context, msg Message) error {
	msg.To = n.resolve(msg.To)
	if msg.To == "" {
		return ErrNoRecipient
	}
	return n.next.Send(ctx, msg)
}

func (n *resolvingNotifier) SendBatch(ctx context.Context, msgs []Message) []Result {
	resolved := make([]Message, len(msgs))
	for i, msg := range msgs {
		msg.To = n.resolve(msg.To)
		resolved[i] = msg
	}

	results := n.next.SendBatch(ctx, resolved)
	for i := range results {
		if i < len(msgs) {
			results[i].Recipient = msgs[i].To
		}
	}
	return results
}
