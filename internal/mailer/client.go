package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one provider-facing email. BCC recipients are hidden from each
// other; Substitutions are expanded by the provider inside subject and body.
type Message struct {
	From           string
	FromName       string
	To             []string
	BCC            []string
	ReplyTo        string
	Subject        string
	HTML           string
	IdempotencyKey string
	Substitutions  map[string]string
}

// Sender is the provider capability the dispatcher is written against.
// SendBatch submits multiple discrete messages in a single provider call.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	SendBatch(ctx context.Context, msgs []Message) ([]string, error)
}

// SendGridSender sends email through the SendGrid v3 API
type SendGridSender struct {
	client *sendgrid.Client
}

// NewSendGridSender creates a SendGrid-backed sender. The API key is
// required; sending is a disabled feature without it.
func NewSendGridSender(apiKey string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SendGrid API key not configured")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}, nil
}

// Send submits a single message and returns the provider message id
func (sg *SendGridSender) Send(ctx context.Context, msg Message) (string, error) {
	v3 := buildMail([]Message{msg})

	response, err := sg.client.SendWithContext(ctx, v3)
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return "", fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return messageID(response), nil
}

// SendBatch submits several discrete messages in one provider call and
// returns one provider message id per message
func (sg *SendGridSender) SendBatch(ctx context.Context, msgs []Message) ([]string, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	v3 := buildMail(msgs)

	response, err := sg.client.SendWithContext(ctx, v3)
	if err != nil {
		return nil, fmt.Errorf("failed to send email batch: %w", err)
	}
	if response.StatusCode >= 400 {
		return nil, fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	// The API returns one id per request; suffix it per message the way the
	// provider's own event payloads do.
	base := messageID(response)
	ids := make([]string, len(msgs))
	for i := range msgs {
		if len(msgs) == 1 {
			ids[i] = base
		} else {
			ids[i] = fmt.Sprintf("%s.%d", base, i)
		}
	}
	return ids, nil
}

// buildMail assembles one API payload; each message becomes a personalization
func buildMail(msgs []Message) *mail.SGMailV3 {
	first := msgs[0]

	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(first.FromName, first.From))
	v3.Subject = first.Subject
	if first.ReplyTo != "" {
		v3.SetReplyTo(mail.NewEmail("", first.ReplyTo))
	}
	v3.AddContent(mail.NewContent("text/html", first.HTML))
	if first.IdempotencyKey != "" {
		v3.SetHeader("Idempotency-Key", first.IdempotencyKey)
	}

	for _, msg := range msgs {
		p := mail.NewPersonalization()
		for _, to := range msg.To {
			p.AddTos(mail.NewEmail("", to))
		}
		for _, bcc := range msg.BCC {
			p.AddBCCs(mail.NewEmail("", bcc))
		}
		if msg.Subject != first.Subject {
			p.Subject = msg.Subject
		}
		for token, value := range msg.Substitutions {
			p.SetSubstitution(token, value)
		}
		v3.AddPersonalizations(p)
	}

	return v3
}

// messageID extracts the provider-assigned message id from the response
func messageID(response *rest.Response) string {
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		return ids[0]
	}
	return ""
}
