package otp

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"warden/pkg/testutil"
)

func newHandlerRouter() (*chi.Mux, *capturingNotifier) {
	notifier := &capturingNotifier{}
	store := NewInMemoryStore()
	svc := NewService(store, notifier, 10*time.Minute, slog.Default())
	r := chi.NewRouter()
	NewHandler(svc, slog.Default()).Register(r)
	return r, notifier
}

func TestRequestEndpoint(t *testing.T) {
	r, notifier := newHandlerRouter()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/password-reset/request", map[string]string{
		"email": "marc@example.com",
	})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(t, rr, http.StatusAccepted)
	assert.Equal(t, "marc@example.com", notifier.address)
}

func TestRequestEndpoint_MissingEmail(t *testing.T) {
	r, _ := newHandlerRouter()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/password-reset/request", map[string]string{})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestConfirmEndpoint(t *testing.T) {
	r, notifier := newHandlerRouter()

	reqIssue := testutil.NewJSONRequest(t, http.MethodPost, "/password-reset/request", map[string]string{
		"email": "marc@example.com",
	})
	testutil.AssertStatus(t, testutil.DoRequest(r, reqIssue), http.StatusAccepted)

	reqConfirm := testutil.NewJSONRequest(t, http.MethodPost, "/password-reset/confirm", map[string]string{
		"email": "marc@example.com",
		"code":  notifier.code(t),
	})
	rr := testutil.DoRequest(r, reqConfirm)

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "verified")
}

func TestConfirmEndpoint_NoActiveCode(t *testing.T) {
	r, _ := newHandlerRouter()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/password-reset/confirm", map[string]string{
		"email": "marc@example.com",
		"code":  "123456",
	})
	rr := testutil.DoRequest(r, req)

	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
