package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// query parameters that carry credentials and never reach the access log
var redactedParams = []string{"token", "access_token"}

// RequestLogger writes one structured access log line per request through l.
func RequestLogger(l *zap.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&zapLogFormatter{logger: l})
}

type zapLogFormatter struct {
	logger *zap.Logger
}

func (f *zapLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("uri", redactURI(r.URL)),
		zap.String("proto", r.Proto),
		zap.String("remote_addr", r.RemoteAddr),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("trace_id", id))
	}
	return &zapLogEntry{logger: f.logger.With(fields...)}
}

type zapLogEntry struct {
	logger *zap.Logger
}

func (e *zapLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.Int("bytes", bytes),
		zap.Duration("elapsed", elapsed),
	}
	switch {
	case status >= 500:
		e.logger.Error("request", fields...)
	case status >= 400:
		e.logger.Warn("request", fields...)
	default:
		e.logger.Info("request", fields...)
	}
}

func (e *zapLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("request panic", zap.String("panic", fmt.Sprintf("%v", v)), zap.ByteString("stack", stack))
}

func redactURI(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	q := u.Query()
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}
	var b strings.Builder
	b.WriteString(u.Path)
	b.WriteByte('?')
	b.WriteString(q.Encode())
	return b.String()
}
