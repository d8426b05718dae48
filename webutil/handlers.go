package webutil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
)

// AppHandler is a handler function that returns an error instead of writing
// error responses itself.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to http.HandlerFunc. A returned error is
// logged and translated into a standardized JSON error response: HTTPError
// keeps its code and message, sql.ErrNoRows maps to 404, and anything else
// is a 500 with a generic body.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := handler(w, r)
		if err == nil {
			// Handler wrote its own successful response.
			return
		}

		statusCode := http.StatusInternalServerError
		publicMessage := msgInternalServer
		logLevel := slog.LevelError

		var httpErr *HTTPError
		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			if statusCode < 500 {
				logLevel = slog.LevelWarn
			}
		case errors.Is(err, sql.ErrNoRows):
			statusCode = http.StatusNotFound
			publicMessage = msgNotFound
			logLevel = slog.LevelInfo
		}

		attrs := []any{
			"code", statusCode,
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
		}
		if httpErr != nil {
			if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != publicMessage {
				attrs = append(attrs, "cause", cause)
			}
		}
		slog.Log(r.Context(), logLevel, "handler error response", attrs...)

		if HasResponseWriterSentHeader(w) {
			// Cannot send another response, just log.
			slog.Warn("handler returned error after writing response header",
				"path", r.URL.Path, "method", r.Method, "error", err)
			return
		}

		RespondWithJSON(w, statusCode, map[string]string{"error": publicMessage})
	}
}
