package webhook

import (
	"context"
	"regexp"
	"testing"
	"time"

	"leadflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRoute_UnknownTypeIsAcknowledged(t *testing.T) {
	rc, mock := newTestReconciler(t)
	router := NewRouter(rc, zerolog.Nop())

	err := router.Route(context.Background(), models.WebhookEnvelope{
		Type: "email.scheduled",
		Data: models.WebhookData{EmailID: "msg-1"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoute_MissingEmailIDIsAnError(t *testing.T) {
	rc, mock := newTestReconciler(t)
	router := NewRouter(rc, zerolog.Nop())

	err := router.Route(context.Background(), models.WebhookEnvelope{
		Type:      models.EventOpened,
		CreatedAt: time.Now().UTC(),
	})

	assert.Error(t, err)
	// No store was touched
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoute_DeliveryDelayedIsANoOp(t *testing.T) {
	rc, mock := newTestReconciler(t)
	router := NewRouter(rc, zerolog.Nop())

	err := router.Route(context.Background(), models.WebhookEnvelope{
		Type: models.EventDeliveryDelayed,
		Data: models.WebhookData{EmailID: "msg-1"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoute_DispatchesToHandler(t *testing.T) {
	rc, mock := newTestReconciler(t)
	router := NewRouter(rc, zerolog.Nop())
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET delivered_at`)).
		WithArgs(now, "msg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectEventAppend(mock, 1)

	err := router.Route(context.Background(), models.WebhookEnvelope{
		Type:      models.EventDelivered,
		CreatedAt: now,
		Data:      models.WebhookData{EmailID: "msg-1"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoute_StepFailuresAreSwallowed(t *testing.T) {
	rc, mock := newTestReconciler(t)
	router := NewRouter(rc, zerolog.Nop())
	now := time.Now().UTC()

	// Every sub-step fails; the provider still gets an acknowledgment so it
	// does not retry a delivery we already accepted
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET delivered_at`)).
		WillReturnError(assert.AnError)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO email_events`)).
		WillReturnError(assert.AnError)

	err := router.Route(context.Background(), models.WebhookEnvelope{
		Type:      models.EventDelivered,
		CreatedAt: now,
		Data:      models.WebhookData{EmailID: "msg-1"},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
