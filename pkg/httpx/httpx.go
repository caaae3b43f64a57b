// Package httpx is a thin transport-neutral handler layer so the ops
// endpoints can be served by either net/http or fasthttp without caring
// which listener they are mounted on.
package httpx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Request is the unified request view handed to handlers. Raw holds the
// underlying transport object for escape hatches.
type Request struct {
	Ctx        context.Context
	Method     string
	Path       string
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
	Raw        interface{}
}

// ResponseWriter is the subset of http.ResponseWriter semantics adapters
// must provide.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the handler signature shared across adapters.
type HandlerFunc func(w ResponseWriter, r *Request)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
