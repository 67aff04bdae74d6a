package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tallerbot/internal/form"
)

func testRequest() *form.Request {
	return &form.Request{
		Name:        "Ana García",
		Phone:       "603 473 062",
		Email:       "ana@example.com",
		Service:     "cambio-aceite",
		Date:        "2024-07-15",
		Time:        "09:00",
		Comments:    "Ruido al frenar",
		AcceptTerms: true,
	}
}

func TestBuildPayload(t *testing.T) {
	logger := zerolog.New(io.Discard)
	sent := time.Date(2024, 7, 12, 10, 30, 0, 0, time.UTC)
	c := NewClient("http://example.test/hook", &logger, WithClock(func() time.Time { return sent }))

	p := c.BuildPayload(testRequest())

	assert.NotEmpty(t, p.RequestID)
	assert.Equal(t, "Ana García", p.Name)
	assert.Equal(t, "603473062", p.Phone, "phone should be normalized")
	assert.Equal(t, "Cambio de aceite y filtros", p.Service, "machine value replaced by label")
	assert.Equal(t, "2024-07-15", p.Date)
	assert.Equal(t, "09:00", p.Time)
	assert.True(t, p.AcceptTerms)
	assert.Equal(t, "2024-07-12T10:30:00Z", p.Timestamp)
	assert.Equal(t, BusinessTag, p.Business)
	assert.Equal(t, AppTag, p.App)
}

func TestBuildPayloadOtherService(t *testing.T) {
	logger := zerolog.New(io.Discard)
	c := NewClient("http://example.test/hook", &logger)

	req := testRequest()
	req.Service = "otro"
	req.OtherService = "Cambio de embrague"

	p := c.BuildPayload(req)
	assert.Equal(t, "Cambio de embrague", p.Service)
}

func TestSendPostsJSON(t *testing.T) {
	var got Payload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	c := NewClient(srv.URL, &logger)

	p := c.BuildPayload(testRequest())
	require.NoError(t, c.Send(context.Background(), p))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, p.RequestID, got.RequestID)
	assert.Equal(t, "Cambio de aceite y filtros", got.Service)
}

func TestSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	c := NewClient(srv.URL, &logger)

	err := c.Send(context.Background(), c.BuildPayload(testRequest()))
	require.Error(t, err)

	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, http.StatusBadGateway, derr.Status)
}

func TestSendTransportError(t *testing.T) {
	logger := zerolog.New(io.Discard)
	// Nothing listens here.
	c := NewClient("http://127.0.0.1:1/hook", &logger)

	err := c.Send(context.Background(), c.BuildPayload(testRequest()))
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Zero(t, derr.Status)
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	c := NewClient(srv.URL, &logger, WithTimeout(20*time.Millisecond))

	err := c.Send(context.Background(), c.BuildPayload(testRequest()))
	var derr *DeliveryError
	require.True(t, errors.As(err, &derr))
}

// Notify must swallow failures: a CRM outage never reaches the caller.
func TestNotifySwallowsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	c := NewClient(srv.URL, &logger)

	assert.NotPanics(t, func() {
		c.Notify(context.Background(), testRequest())
	})
}

func TestNotifySkipsWithoutURL(t *testing.T) {
	delivered := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered = true
	}))
	defer srv.Close()

	logger := zerolog.New(io.Discard)
	c := NewClient("", &logger)
	c.Notify(context.Background(), testRequest())

	assert.False(t, delivered)
}
