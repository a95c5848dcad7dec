package mailer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"leadflow/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatch error classes. Configuration errors are surfaced before any
// provider call; validation errors before any external work at all.
var (
	ErrNotConfigured = errors.New("email provider not configured")
	ErrNoRecipients  = errors.New("no valid recipients")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Options tunes the dispatcher to the provider's API constraints
type Options struct {
	MaxRecipientsPerCall int           // provider cap on recipients per call (R)
	MaxCallsPerSecond    int           // provider cap on calls per second (C)
	SendDelay            time.Duration // overrides the derived inter-call delay when > 0
	MessagesPerBatch     int           // discrete messages grouped into one batch call
}

// Dispatcher turns a logical send request into sequential, rate-limited
// provider calls and aggregates their outcomes
type Dispatcher struct {
	sender           Sender
	logger           zerolog.Logger
	maxRecipients    int
	messagesPerBatch int
	delay            time.Duration
	sleep            func(time.Duration)
}

// NewDispatcher creates a dispatcher over the given sender
func NewDispatcher(sender Sender, opts Options, logger zerolog.Logger) *Dispatcher {
	maxRecipients := opts.MaxRecipientsPerCall
	if maxRecipients <= 0 {
		maxRecipients = 50
	}
	callsPerSecond := opts.MaxCallsPerSecond
	if callsPerSecond <= 0 {
		callsPerSecond = 2
	}
	messagesPerBatch := opts.MessagesPerBatch
	if messagesPerBatch <= 0 {
		messagesPerBatch = 10
	}
	delay := opts.SendDelay
	if delay <= 0 {
		// Slack on top of 1/C keeps us under the cap even when the provider
		// batches internally.
		delay = time.Second/time.Duration(callsPerSecond) + 100*time.Millisecond
	}
	return &Dispatcher{
		sender:           sender,
		logger:           logger,
		maxRecipients:    maxRecipients,
		messagesPerBatch: messagesPerBatch,
		delay:            delay,
		sleep:            time.Sleep,
	}
}

// Request is a logical "send this message to N recipients" dispatch request
type Request struct {
	Subject      string
	HTML         string
	From         string
	FromName     string
	ReplyTo      string
	Recipients   []string
	Names        map[string]string // lowercased recipient address -> display name
	Personalized bool
}

// SendRecord is the outcome of one provider-facing message
type SendRecord struct {
	Recipients []string `json:"recipients"`
	ProviderID string   `json:"provider_id,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Outcome aggregates all provider call results for one dispatch request
type Outcome struct {
	Status          string
	Personalized    bool
	SuccessfulSends int
	FailedSends     int
	Records         []SendRecord
}

// ProviderID returns the first successful provider message id, if any
func (o *Outcome) ProviderID() string {
	for _, record := range o.Records {
		if record.Error == "" && record.ProviderID != "" {
			return record.ProviderID
		}
	}
	return ""
}

// providerCall is one planned API call covering one or more messages
type providerCall struct {
	msgs       []Message
	recipients []string
}

// Dispatch validates the request, picks a send mode, issues the provider
// calls sequentially and aggregates the outcome. Per-call failures are
// recorded, never fatal.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	if d.sender == nil {
		return nil, ErrNotConfigured
	}

	valid := filterValid(req.Recipients)
	if len(valid) == 0 {
		return nil, ErrNoRecipients
	}

	personalized := req.Personalized && hasName(valid, req.Names)
	individual := personalized
	if !personalized && (ContainsToken(req.Subject) || ContainsToken(req.HTML)) {
		if hasName(valid, req.Names) {
			// Tokens present and names resolved: treat the message as
			// personalized even without the explicit flag.
			personalized = true
		}
		// Once tokens are detected the dispatch is committed to
		// per-recipient sends, expanded or not.
		individual = true
	}

	var calls []providerCall
	if individual {
		calls = d.individualCalls(req, valid, personalized)
	} else {
		calls = d.bulkCalls(req, valid)
	}

	outcome := &Outcome{Personalized: personalized}
	for i, call := range calls {
		ids, err := d.issue(ctx, call)
		if err != nil {
			outcome.FailedSends += len(call.recipients)
			outcome.Records = append(outcome.Records, SendRecord{
				Recipients: call.recipients,
				Error:      err.Error(),
			})
			d.logger.Error().Err(err).
				Int("batch", i).
				Int("recipients", len(call.recipients)).
				Msg("Provider call failed")
		} else {
			outcome.SuccessfulSends += len(call.recipients)
			for j, msg := range call.msgs {
				outcome.Records = append(outcome.Records, SendRecord{
					Recipients: messageAudience(msg),
					ProviderID: ids[j],
				})
			}
		}

		if i < len(calls)-1 {
			d.sleep(d.delay)
		}
	}

	switch {
	case outcome.SuccessfulSends == 0:
		outcome.Status = models.EmailStatusFailed
	case outcome.FailedSends == 0:
		outcome.Status = models.EmailStatusSent
	default:
		outcome.Status = models.EmailStatusPartiallySent
	}

	return outcome, nil
}

// issue performs one provider call; a panic-free error is a batch failure
func (d *Dispatcher) issue(ctx context.Context, call providerCall) ([]string, error) {
	if len(call.msgs) == 1 {
		id, err := d.sender.Send(ctx, call.msgs[0])
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}

	ids, err := d.sender.SendBatch(ctx, call.msgs)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(call.msgs) {
		return nil, fmt.Errorf("provider returned %d ids for %d messages", len(ids), len(call.msgs))
	}
	return ids, nil
}

// individualCalls plans one message per recipient, grouped into batch calls
func (d *Dispatcher) individualCalls(req Request, recipients []string, personalized bool) []providerCall {
	base := uuid.NewString()

	msgs := make([]Message, 0, len(recipients))
	for i, recipient := range recipients {
		msg := Message{
			From:           req.From,
			FromName:       req.FromName,
			To:             []string{recipient},
			ReplyTo:        req.ReplyTo,
			Subject:        req.Subject,
			HTML:           req.HTML,
			IdempotencyKey: fmt.Sprintf("%s-%d", base, i),
		}
		if personalized {
			if name := req.Names[strings.ToLower(recipient)]; name != "" {
				msg.Subject = PersonalizeContent(req.Subject, name)
				msg.Substitutions = SubstitutionMap(name)
			}
		}
		msgs = append(msgs, msg)
	}

	calls := []providerCall{}
	for start := 0; start < len(msgs); start += d.messagesPerBatch {
		end := start + d.messagesPerBatch
		if end > len(msgs) {
			end = len(msgs)
		}
		group := msgs[start:end]
		audience := make([]string, 0, len(group))
		for _, msg := range group {
			audience = append(audience, msg.To...)
		}
		calls = append(calls, providerCall{msgs: group, recipients: audience})
	}
	return calls
}

// bulkCalls plans BCC messages in chunks of the per-call recipient cap. The
// visible recipient is the sender itself so the audience stays hidden.
func (d *Dispatcher) bulkCalls(req Request, recipients []string) []providerCall {
	base := uuid.NewString()

	calls := []providerCall{}
	index := 0
	for start := 0; start < len(recipients); start += d.maxRecipients {
		end := start + d.maxRecipients
		if end > len(recipients) {
			end = len(recipients)
		}
		chunk := recipients[start:end]
		msg := Message{
			From:           req.From,
			FromName:       req.FromName,
			To:             []string{req.From},
			BCC:            chunk,
			ReplyTo:        req.ReplyTo,
			Subject:        req.Subject,
			HTML:           req.HTML,
			IdempotencyKey: fmt.Sprintf("%s-%d", base, index),
		}
		calls = append(calls, providerCall{msgs: []Message{msg}, recipients: chunk})
		index++
	}
	return calls
}

// messageAudience returns the actual recipients a message addresses
func messageAudience(msg Message) []string {
	if len(msg.BCC) > 0 {
		return msg.BCC
	}
	return msg.To
}

// filterValid drops addresses without an RFC-plausible shape
func filterValid(recipients []string) []string {
	valid := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		trimmed := strings.TrimSpace(recipient)
		if emailRegex.MatchString(trimmed) {
			valid = append(valid, trimmed)
		}
	}
	return valid
}

// hasName reports whether identity data exists for at least one recipient
func hasName(recipients []string, names map[string]string) bool {
	for _, recipient := range recipients {
		if names[strings.ToLower(recipient)] != "" {
			return true
		}
	}
	return false
}
