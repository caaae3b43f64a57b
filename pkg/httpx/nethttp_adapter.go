package httpx

import "net/http"

// NetHTTPAdapter adapts a HandlerFunc into a standard net/http handler.
func NetHTTPAdapter(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := &Request{
			Ctx:        r.Context(),
			Method:     r.Method,
			Path:       r.URL.Path,
			Header:     r.Header.Clone(),
			Body:       r.Body,
			RemoteAddr: r.RemoteAddr,
			Raw:        r,
		}
		rw := &netHTTPResponseWriter{w: w}
		h(rw, req)
	})
}

type netHTTPResponseWriter struct {
	w      http.ResponseWriter
	status int
}

func (r *netHTTPResponseWriter) Header() http.Header { return r.w.Header() }

func (r *netHTTPResponseWriter) WriteHeader(status int) {
	r.status = status
	r.w.WriteHeader(status)
}

func (r *netHTTPResponseWriter) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.WriteHeader(http.StatusOK)
	}
	return r.w.Write(b)
}
