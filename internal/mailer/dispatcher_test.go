package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"leadflow/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCall records one provider call as the fake sender saw it
type fakeCall struct {
	msgs  []Message
	batch bool
}

// fakeSender implements Sender in-memory and can fail selected calls
type fakeSender struct {
	calls  []fakeCall
	failOn map[int]error
	nextID int
}

func (f *fakeSender) Send(ctx context.Context, msg Message) (string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, fakeCall{msgs: []Message{msg}})
	if err := f.failOn[idx]; err != nil {
		return "", err
	}
	f.nextID++
	return fmt.Sprintf("msg-%d", f.nextID), nil
}

func (f *fakeSender) SendBatch(ctx context.Context, msgs []Message) ([]string, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, fakeCall{msgs: msgs, batch: true})
	if err := f.failOn[idx]; err != nil {
		return nil, err
	}
	ids := make([]string, len(msgs))
	for i := range msgs {
		f.nextID++
		ids[i] = fmt.Sprintf("msg-%d", f.nextID)
	}
	return ids, nil
}

// newTestDispatcher replaces the real sleep with a counter so tests stay fast
func newTestDispatcher(sender Sender, opts Options) (*Dispatcher, *int) {
	d := NewDispatcher(sender, opts, zerolog.Nop())
	sleeps := 0
	d.sleep = func(time.Duration) { sleeps++ }
	return d, &sleeps
}

func makeRecipients(n int) []string {
	recipients := make([]string, n)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("user%03d@example.com", i)
	}
	return recipients
}

func TestDispatch_NoSenderConfigured(t *testing.T) {
	d, _ := newTestDispatcher(nil, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hello",
		HTML:       "<p>Hello</p>",
		From:       "news@leadflow.app",
		Recipients: []string{"a@example.com"},
	})

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDispatch_NoValidRecipients(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDispatcher(sender, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hello",
		HTML:       "<p>Hello</p>",
		From:       "news@leadflow.app",
		Recipients: []string{"not-an-address", "", "also bad"},
	})

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, ErrNoRecipients)
	assert.Empty(t, sender.calls)
}

func TestDispatch_BulkAnonymous_ChunksAndDelays(t *testing.T) {
	sender := &fakeSender{}
	d, sleeps := newTestDispatcher(sender, Options{MaxRecipientsPerCall: 50})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "September update",
		HTML:       "<p>News for everyone</p>",
		From:       "news@leadflow.app",
		Recipients: makeRecipients(120),
	})

	require.NoError(t, err)
	require.Len(t, sender.calls, 3)

	// 120 recipients over a cap of 50 means chunks of 50, 50 and 20
	assert.Len(t, sender.calls[0].msgs[0].BCC, 50)
	assert.Len(t, sender.calls[1].msgs[0].BCC, 50)
	assert.Len(t, sender.calls[2].msgs[0].BCC, 20)

	for _, call := range sender.calls {
		assert.False(t, call.batch)
		require.Len(t, call.msgs, 1)
		// The visible recipient is the sender itself, the audience stays hidden
		assert.Equal(t, []string{"news@leadflow.app"}, call.msgs[0].To)
		assert.NotEmpty(t, call.msgs[0].IdempotencyKey)
	}
	assert.NotEqual(t, sender.calls[0].msgs[0].IdempotencyKey, sender.calls[1].msgs[0].IdempotencyKey)

	// A delay between consecutive calls but not after the last one
	assert.Equal(t, 2, *sleeps)

	assert.Equal(t, models.EmailStatusSent, outcome.Status)
	assert.False(t, outcome.Personalized)
	assert.Equal(t, 120, outcome.SuccessfulSends)
	assert.Equal(t, 0, outcome.FailedSends)
	assert.Len(t, outcome.Records, 3)
	assert.Equal(t, "msg-1", outcome.ProviderID())
}

func TestDispatch_Personalized_SingleBatch(t *testing.T) {
	sender := &fakeSender{}
	d, sleeps := newTestDispatcher(sender, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:      "Hi {{name}}",
		HTML:         "<p>Hello {{name}}, thanks for signing up</p>",
		From:         "news@leadflow.app",
		Recipients:   []string{"dana@example.com", "omar@example.com", "iris@example.com"},
		Names:        map[string]string{"dana@example.com": "Dana", "omar@example.com": "Omar", "iris@example.com": "Iris"},
		Personalized: true,
	})

	require.NoError(t, err)

	// Three discrete messages travel in a single batch call
	require.Len(t, sender.calls, 1)
	assert.True(t, sender.calls[0].batch)
	require.Len(t, sender.calls[0].msgs, 3)
	assert.Equal(t, 0, *sleeps)

	subjects := make(map[string]string, 3)
	for _, msg := range sender.calls[0].msgs {
		require.Len(t, msg.To, 1)
		assert.Empty(t, msg.BCC)
		subjects[msg.To[0]] = msg.Subject
		assert.NotEmpty(t, msg.Substitutions)
	}
	assert.Equal(t, "Hi Dana", subjects["dana@example.com"])
	assert.Equal(t, "Hi Omar", subjects["omar@example.com"])
	assert.Equal(t, "Hi Iris", subjects["iris@example.com"])

	assert.Equal(t, models.EmailStatusSent, outcome.Status)
	assert.True(t, outcome.Personalized)
	assert.Equal(t, 3, outcome.SuccessfulSends)
	assert.Len(t, outcome.Records, 3)
}

func TestDispatch_TokensWithoutNames_FallsBackToIndividual(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDispatcher(sender, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hi {{name}}",
		HTML:       "<p>Hello {{name}}</p>",
		From:       "news@leadflow.app",
		Recipients: []string{"a@example.com", "b@example.com"},
	})

	require.NoError(t, err)

	// Tokens force per-recipient messages even when nothing can expand them
	require.Len(t, sender.calls, 1)
	require.Len(t, sender.calls[0].msgs, 2)
	for _, msg := range sender.calls[0].msgs {
		assert.Empty(t, msg.BCC)
		assert.Equal(t, "Hi {{name}}", msg.Subject)
		assert.Empty(t, msg.Substitutions)
	}
	assert.False(t, outcome.Personalized)
}

func TestDispatch_TokensWithNames_ImpliesPersonalization(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDispatcher(sender, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hi {{name}}",
		HTML:       "<p>Hello {{name}}</p>",
		From:       "news@leadflow.app",
		Recipients: []string{"dana@example.com"},
		Names:      map[string]string{"dana@example.com": "Dana"},
	})

	require.NoError(t, err)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "Hi Dana", sender.calls[0].msgs[0].Subject)
	assert.True(t, outcome.Personalized)
}

func TestDispatch_IndividualBatchGrouping(t *testing.T) {
	sender := &fakeSender{}
	d, sleeps := newTestDispatcher(sender, Options{})

	names := make(map[string]string)
	recipients := makeRecipients(25)
	for _, recipient := range recipients {
		names[recipient] = "Friend"
	}

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:      "Hello",
		HTML:         "<p>Hello</p>",
		From:         "news@leadflow.app",
		Recipients:   recipients,
		Names:        names,
		Personalized: true,
	})

	require.NoError(t, err)

	// 25 messages at 10 per batch call
	require.Len(t, sender.calls, 3)
	assert.Len(t, sender.calls[0].msgs, 10)
	assert.Len(t, sender.calls[1].msgs, 10)
	assert.Len(t, sender.calls[2].msgs, 5)
	assert.Equal(t, 2, *sleeps)
	assert.Equal(t, 25, outcome.SuccessfulSends)
	assert.Len(t, outcome.Records, 25)
}

func TestDispatch_PartialFailure(t *testing.T) {
	sender := &fakeSender{failOn: map[int]error{1: errors.New("provider unavailable")}}
	d, sleeps := newTestDispatcher(sender, Options{MaxRecipientsPerCall: 50})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hello",
		HTML:       "<p>Hello</p>",
		From:       "news@leadflow.app",
		Recipients: makeRecipients(120),
	})

	require.NoError(t, err)

	// The failed middle chunk never stops the remaining calls
	require.Len(t, sender.calls, 3)
	assert.Equal(t, 2, *sleeps)

	assert.Equal(t, models.EmailStatusPartiallySent, outcome.Status)
	assert.Equal(t, 70, outcome.SuccessfulSends)
	assert.Equal(t, 50, outcome.FailedSends)

	require.Len(t, outcome.Records, 3)
	assert.Empty(t, outcome.Records[0].Error)
	assert.Equal(t, "provider unavailable", outcome.Records[1].Error)
	assert.Len(t, outcome.Records[1].Recipients, 50)
	assert.Empty(t, outcome.Records[2].Error)
}

func TestDispatch_AllCallsFail(t *testing.T) {
	sender := &fakeSender{failOn: map[int]error{
		0: errors.New("down"),
		1: errors.New("down"),
	}}
	d, _ := newTestDispatcher(sender, Options{MaxRecipientsPerCall: 50})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hello",
		HTML:       "<p>Hello</p>",
		From:       "news@leadflow.app",
		Recipients: makeRecipients(100),
	})

	require.NoError(t, err)
	assert.Equal(t, models.EmailStatusFailed, outcome.Status)
	assert.Equal(t, 0, outcome.SuccessfulSends)
	assert.Equal(t, 100, outcome.FailedSends)
	assert.Empty(t, outcome.ProviderID())
}

func TestDispatch_FiltersInvalidRecipients(t *testing.T) {
	sender := &fakeSender{}
	d, _ := newTestDispatcher(sender, Options{})

	outcome, err := d.Dispatch(context.Background(), Request{
		Subject:    "Hello",
		HTML:       "<p>Hello</p>",
		From:       "news@leadflow.app",
		Recipients: []string{"good@example.com", "bad address", "  trimmed@example.com  "},
	})

	require.NoError(t, err)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, []string{"good@example.com", "trimmed@example.com"}, sender.calls[0].msgs[0].BCC)
	assert.Equal(t, 2, outcome.SuccessfulSends)
}

func TestOutcome_ProviderID(t *testing.T) {
	outcome := &Outcome{Records: []SendRecord{
		{Recipients: []string{"a@example.com"}, Error: "boom"},
		{Recipients: []string{"b@example.com"}, ProviderID: "msg-7"},
		{Recipients: []string{"c@example.com"}, ProviderID: "msg-8"},
	}}
	assert.Equal(t, "msg-7", outcome.ProviderID())

	empty := &Outcome{}
	assert.Empty(t, empty.ProviderID())
}

func TestNewDispatcher_DerivedDelay(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, Options{MaxCallsPerSecond: 2}, zerolog.Nop())
	assert.Equal(t, 600*time.Millisecond, d.delay)

	d = NewDispatcher(&fakeSender{}, Options{SendDelay: time.Second}, zerolog.Nop())
	assert.Equal(t, time.Second, d.delay)
}
