package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusCreated).
		BodyString("test").
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "test", w.Body.String())
	assert.Empty(t, w.Header().Get("HX-Trigger"))
}

func TestHTMXResponseBuilder_Partial(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().Partial([]byte(`<ul><li>Food</li></ul>`)).Write(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `<ul><li>Food</li></ul>`, w.Body.String())
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerExpenseAdded("2024-03-01").
		TriggerFormReset().
		TriggerSuccessNotification("Expense added!").
		Write(w)

	var triggers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers))
	assert.Contains(t, triggers, "form:reset")
	assert.JSONEq(t, `{"date":"2024-03-01"}`, string(triggers["expense:added"]))
	assert.JSONEq(t, `{"type":"success","message":"Expense added!","duration":3000}`, string(triggers["show-notification"]))
}

func TestHTMXResponseBuilder_Refresh(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Refresh().TriggerProfileSaved().Write(w)

	assert.Equal(t, "true", w.Header().Get("HX-Refresh"))
	assert.Contains(t, w.Header().Get("HX-Trigger"), "profile:saved")
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name string
		b    *HTMXResponseBuilder
		code int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("x"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("x"), http.StatusNotFound},
		{"unavailable", ServiceUnavailableError("x"), http.StatusServiceUnavailable},
		{"internal", InternalServerError("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.b.Write(w)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		})
	}
}

func TestErrorResponse_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntityError(`<script>alert("x")</script>`).Write(w)

	assert.NotContains(t, w.Body.String(), "<script>")
	assert.Contains(t, w.Body.String(), `<div class="error">`)
}
