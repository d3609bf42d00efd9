package httpd

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Health reports whether the sensors are usable.
type Health interface {
	Ready() bool
}

// NewAdminRouter serves /metrics and /healthz. metrics may be nil.
func NewAdminRouter(metrics http.Handler, h Health, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := mux.NewRouter()
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if h != nil && !h.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("sensors not ready\n"))
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(log.Handler(), slog.LevelError)),
	)(r)
}
