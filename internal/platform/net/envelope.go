package net

import (
	"context"
	"encoding/json"
	"net/http"

	perr "heapcensus/internal/platform/errors"
)

// Envelope is the body of every census API response
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	Retryable  bool           `json:"retryable,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Reply builds a success envelope stamped with the request and session ids on ctx
func Reply(ctx context.Context, status int, data any) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  RequestID(ctx),
		SessionID:  SessionID(ctx),
		Data:       data,
	}
}

// Fail maps err onto its status and error envelope
// a nil err is a 200 with no data
func Fail(ctx context.Context, err error) (int, Envelope) {
	if err == nil {
		return http.StatusOK, Reply(ctx, http.StatusOK, nil)
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	env := Reply(ctx, status, nil)
	env.Code = w.Code
	env.Error = w.Message
	env.Field = w.Field
	env.Retryable = perr.Retryable(err)
	return status, env
}

// Write encodes v as JSON with status
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
