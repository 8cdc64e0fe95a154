package middleware

import (
	"net/http"
	"time"

	"urlstore/pkg/logging"

	chimw "github.com/go-chi/chi/v5/middleware"
)

const CorrelationHeader = "X-Correlation-ID"

// CorrelationID takes the request's X-Correlation-ID or mints one, stores it in the
// context and echoes it on the response.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(CorrelationHeader); id != "" {
			ctx = logging.SetCorrelationID(ctx, id)
		} else {
			ctx = logging.WithCorrelationID(ctx)
		}
		w.Header().Set(CorrelationHeader, logging.GetCorrelationID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.LogRequest(r.Context(), r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
		})
	}
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET,HEAD,POST,DELETE,OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type," + AuthHeader + "," + CorrelationHeader,
	"Access-Control-Max-Age":       "86400",
}

// CORS sets permissive CORS headers on every response and answers preflights.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
