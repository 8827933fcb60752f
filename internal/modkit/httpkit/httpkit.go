// Package httpkit is what census modules mount handlers with
// modules use it instead of importing internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "heapcensus/internal/platform/net/http"
	"heapcensus/internal/platform/net/http/bind"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Handler is the platform handler type
	Handler = phttp.Handler
	// Response is a return-style handler result
	Response = phttp.Response
	// Envelope is the response body
	Envelope = phttp.Envelope
)

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// NoContent returns a 204 response
func NoContent() Response { return phttp.NoContent() }

// Error returns a response carrying err as the error envelope
func Error(err error) Response { return phttp.Error(err) }

// Call adapts a body-less handler; a returned Response passes through, anything else is wrapped in OK
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		out, err := fn(r)
		return result(out, err)
	})
}

// JSON decodes and validates T from the body, then behaves like Call
func JSON[T any](fn func(*http.Request, T) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		return result(out, err)
	})
}

func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}

// Get mounts a read endpoint
func Get(r Router, path string, fn func(*http.Request) (any, error)) { r.Get(path, Call(fn)) }

// Post mounts a command endpoint without a body
func Post(r Router, path string, fn func(*http.Request) (any, error)) { r.Post(path, Call(fn)) }

// PostJSON mounts a command endpoint taking a JSON body of T
func PostJSON[T any](r Router, path string, fn func(*http.Request, T) (any, error)) {
	r.Post(path, JSON(fn))
}
