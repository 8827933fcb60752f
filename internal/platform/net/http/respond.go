// Package http holds the census HTTP server, router seam and return-style responses
package http

import (
	"net/http"

	pnet "heapcensus/internal/platform/net"
)

// Envelope is the response body, re-exported for handler tests
type Envelope = pnet.Envelope

// Response is what return-style handlers produce; an error Body becomes the error envelope
type Response struct {
	Status int
	Body   any
	Header http.Header
}

// Handle adapts a Response-returning handler to net/http
func Handle(h func(r *http.Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	if err, ok := resp.Body.(error); ok && err != nil {
		status, env := pnet.Fail(r.Context(), err)
		pnet.Write(w, status, env)
		return
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	pnet.Write(w, status, pnet.Reply(r.Context(), status, resp.Body))
}

// OK returns a 200 response
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// NoContent returns a 204 response
func NoContent() Response { return Response{Status: http.StatusNoContent} }

// Error returns a response that maps err to its status and envelope
func Error(err error) Response { return Response{Body: err} }
