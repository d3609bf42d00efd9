// Package httpd serves the sensor report page.
package httpd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"envhttpd/errcode"
	"envhttpd/types"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Poller produces one snapshot per call.
type Poller interface {
	Poll(ctx context.Context) (types.Snapshot, error)
}

// Middleware wraps the handler for a named route, e.g. for metrics.
type Middleware func(route string, next http.Handler) http.Handler

// NewRouter routes GET / to the report and swallows everything else.
func NewRouter(p Poller, log *slog.Logger, mw Middleware) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	var report http.Handler = reportHandler(p, log)
	if mw != nil {
		report = mw("/", report)
	}

	r := mux.NewRouter().SkipClean(true)
	r.Handle("/", report).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(swallow)
	r.MethodNotAllowedHandler = http.HandlerFunc(swallow)

	return handlers.CustomLoggingHandler(io.Discard, r, accessLog(log))
}

func reportHandler(p Poller, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := p.Poll(r.Context())
		if err != nil {
			log.Error("sensor poll failed", "code", errcode.Of(err), "err", err)
			fail(w)
			return
		}
		body, err := render(snap)
		if err != nil {
			log.Error("render failed", "err", err)
			fail(w)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

// fail sends a bare 500.
func fail(w http.ResponseWriter) {
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusInternalServerError)
}

// swallow closes the connection without writing a response.
func swallow(w http.ResponseWriter, r *http.Request) {
	if hj, ok := w.(http.Hijacker); ok {
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
			return
		}
	}
	// HTTP/2 and test recorders cannot hijack; aborting the handler
	// resets the stream instead.
	panic(http.ErrAbortHandler)
}

func accessLog(log *slog.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Info("http request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"size", p.Size,
			"remote", p.Request.RemoteAddr,
		)
	}
}
