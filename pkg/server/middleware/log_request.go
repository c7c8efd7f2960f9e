package middleware

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/Peripli/character-gallery/pkg/httputils"
	"github.com/Peripli/service-manager/pkg/log"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// CorrelationIDHeader carries the correlation id of a request
const CorrelationIDHeader = "X-Correlation-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(body []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(body)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// LogRequest attaches a logger with the request correlation id to the request context and logs
// every request once it has been served
func LogRequest() func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			correlationID := r.Header.Get(CorrelationIDHeader)
			if correlationID == "" {
				if id, err := uuid.NewV4(); err == nil {
					correlationID = id.String()
				}
			}
			entry := log.C(r.Context()).WithField(log.FieldCorrelationID, correlationID)
			ctx := log.ContextWithLogger(r.Context(), entry)
			w.Header().Set(CorrelationIDHeader, correlationID)

			recorder := &statusRecorder{ResponseWriter: w}
			handler.ServeHTTP(recorder, r.WithContext(ctx))

			entry.Debugf("%s %s %d %s", r.Method, r.URL.Path, recorder.status, time.Since(start))
		})
	}
}

// Recover turns panics of handlers into internal server errors
func Recover() func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.C(r.Context()).Errorf("Recovered from panic while serving %s %s: %v", r.Method, r.URL.Path, err)
					httputils.WriteResponse(w, http.StatusInternalServerError, httputils.HTTPErrorResponse{
						ErrorKey:     "InternalError",
						ErrorMessage: "Internal server error",
					})
				}
			}()
			handler.ServeHTTP(w, r)
		})
	}
}
