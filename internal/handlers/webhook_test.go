package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"leadflow/internal/cache"
	"leadflow/internal/database"
	"leadflow/internal/metrics"
	"leadflow/internal/models"
	"leadflow/internal/webhook"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "test-secret"

// webhookEnv bundles everything a webhook handler test needs
type webhookEnv struct {
	handler  echo.HandlerFunc
	verifier *webhook.Verifier
	limiter  *webhook.RateLimiter
	dedupe   *cache.Cache
	mock     sqlmock.Sqlmock
}

// silentCounter keeps the deliverability monitor quiet in handler tests
type silentCounter struct{}

func (silentCounter) EventCounts(ctx context.Context, eventType string, since time.Time) (int, int, error) {
	return 0, 0, nil
}

func newWebhookEnv(t *testing.T) *webhookEnv {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlmock")

	emails, err := database.NewEmailService(db)
	require.NoError(t, err)
	leads, err := database.NewLeadService(db)
	require.NoError(t, err)
	receipts, err := database.NewReceiptService(db)
	require.NoError(t, err)
	metricsService, err := metrics.NewService(db)
	require.NoError(t, err)

	verifier, err := webhook.NewVerifier(testSigningSecret)
	require.NoError(t, err)

	monitor := webhook.NewMonitor(silentCounter{}, zerolog.Nop())
	reconciler := webhook.NewReconciler(emails, leads, metricsService, monitor, zerolog.Nop())
	router := webhook.NewRouter(reconciler, zerolog.Nop())

	limiter := webhook.NewRateLimiter(100, time.Minute)
	dedupe := cache.New(100, time.Hour)

	return &webhookEnv{
		handler:  WebhookHandler(verifier, limiter, dedupe, receipts, router, zerolog.Nop()),
		verifier: verifier,
		limiter:  limiter,
		dedupe:   dedupe,
		mock:     mock,
	}
}

// signedRequest builds a POST with valid signature headers for the body
func signedRequest(v *webhook.Verifier, eventID, body string) *http.Request {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(webhook.HeaderEventID, eventID)
	req.Header.Set(webhook.HeaderTimestamp, timestamp)
	req.Header.Set(webhook.HeaderSignature, "v1,"+v.Sign(eventID, timestamp, []byte(body)))
	return req
}

func performWebhook(t *testing.T, env *webhookEnv, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, env.handler(c))
	return rec
}

func deliveredBody(emailID string) string {
	return fmt.Sprintf(`{"type":"email.delivered","created_at":"%s","data":{"email_id":"%s","to":["dana@example.com"]}}`,
		time.Now().UTC().Format(time.RFC3339), emailID)
}

func TestWebhookHandler_ProcessesEvent(t *testing.T) {
	env := newWebhookEnv(t)
	body := deliveredBody("msg-1")

	env.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM webhook_events`)).
		WithArgs("evt_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET delivered_at`)).
		WithArgs(sqlmock.AnyArg(), "msg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO email_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO email_metrics`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
		WithArgs("evt_1", "email.delivered").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := performWebhook(t, env, signedRequest(env.verifier, "evt_1", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook processed")
	assert.True(t, env.dedupe.Has("evt_1"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_ReplayedDeliveryIsNotReprocessed(t *testing.T) {
	env := newWebhookEnv(t)
	body := deliveredBody("msg-1")

	env.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM webhook_events`)).
		WithArgs("evt_replay").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	env.mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET delivered_at`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO email_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO email_metrics`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO webhook_events`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	first := performWebhook(t, env, signedRequest(env.verifier, "evt_replay", body))
	assert.Equal(t, http.StatusOK, first.Code)

	// The replay is acknowledged from the cache without touching any store
	second := performWebhook(t, env, signedRequest(env.verifier, "evt_replay", body))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "already processed")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_PersistedReceiptShortCircuits(t *testing.T) {
	env := newWebhookEnv(t)
	body := deliveredBody("msg-1")

	// Cache is cold after a restart; the receipt log still knows the event
	env.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM webhook_events`)).
		WithArgs("evt_persisted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rec := performWebhook(t, env, signedRequest(env.verifier, "evt_persisted", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already processed")
	assert.True(t, env.dedupe.Has("evt_persisted"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_MissingHeaders(t *testing.T) {
	env := newWebhookEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(deliveredBody("msg-1")))
	rec := performWebhook(t, env, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing webhook headers")
}

func TestWebhookHandler_TamperedBody(t *testing.T) {
	env := newWebhookEnv(t)

	req := signedRequest(env.verifier, "evt_1", deliveredBody("msg-1"))
	req.Body = httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(deliveredBody("msg-other"))).Body

	rec := performWebhook(t, env, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid signature")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_RateLimited(t *testing.T) {
	env := newWebhookEnv(t)
	limited := WebhookHandler(env.verifier, webhook.NewRateLimiter(1, time.Minute), env.dedupe, nil, nil, zerolog.Nop())

	e := echo.New()

	// Exhaust the single-request budget with an unsigned request
	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	require.NoError(t, limited(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader("{}"))
	rec = httptest.NewRecorder()
	require.NoError(t, limited(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestWebhookHandler_MalformedPayload(t *testing.T) {
	env := newWebhookEnv(t)
	body := `{"type":`

	env.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM webhook_events`)).
		WithArgs("evt_bad").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rec := performWebhook(t, env, signedRequest(env.verifier, "evt_bad", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Malformed event payload")
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_RoutingFailureAsksForRetry(t *testing.T) {
	env := newWebhookEnv(t)
	// An opened event without an email id cannot be reconciled
	body := `{"type":"email.opened","created_at":"2026-09-01T10:00:00Z","data":{}}`

	env.mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM webhook_events`)).
		WithArgs("evt_noid").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	rec := performWebhook(t, env, signedRequest(env.verifier, "evt_noid", body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Neither idempotency layer may remember a failed delivery
	assert.False(t, env.dedupe.Has("evt_noid"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestWebhookHandler_DisabledWithoutSecret(t *testing.T) {
	handler := WebhookHandler(nil, webhook.NewRateLimiter(100, time.Minute), cache.New(10, time.Hour), nil, nil, zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp models.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Webhook processing disabled", resp.Message)
}
