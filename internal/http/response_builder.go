package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"fintrack/internal/core"
)

// TriggerHeader carries client-side events as a JSON object, following the
// htmx HX-Trigger convention. static/app.js dispatches each key as a DOM
// event.
const TriggerHeader = "HX-Trigger"

// ResponseBuilder assembles partial responses for script-driven forms: a
// status, an HTML fragment and a set of triggers.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

func (b *ResponseBuilder) TriggerTransactionCreated(id int64, month core.MonthKey) *ResponseBuilder {
	return b.Trigger("transaction:created", map[string]any{"id": id, "month": string(month)})
}

func (b *ResponseBuilder) TriggerTransactionDeleted(id int64) *ResponseBuilder {
	return b.Trigger("transaction:deleted", map[string]any{"id": id})
}

func (b *ResponseBuilder) TriggerGoalUpdated(id int64, progress int) *ResponseBuilder {
	return b.Trigger("goal:updated", map[string]any{"id": id, "progress": progress})
}

// TriggerChartsRefresh asks the dashboard to reload /api/chart_data.
func (b *ResponseBuilder) TriggerChartsRefresh() *ResponseBuilder {
	return b.Trigger("charts:refresh", struct{}{})
}

func (b *ResponseBuilder) TriggerFormReset() *ResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

func (b *ResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *ResponseBuilder) TriggerSuccessNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *ResponseBuilder) TriggerErrorNotification(message string) *ResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set(TriggerHeader, string(triggerJSON))
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse is an escaped error fragment with a matching notification.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		TriggerErrorNotification(message).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// SuccessResponse is an escaped confirmation fragment.
func SuccessResponse(message string) *ResponseBuilder {
	return NewResponse().
		TriggerSuccessNotification(message).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(message) + `</div>`)
}
