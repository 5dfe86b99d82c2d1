package routing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pelyams/cached_product_service/internal/domain"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// LoggerMiddleware installs a fresh ErrorContainer for every request and logs
// one line per request once the handler returns. Requests that recorded
// errors are logged at WARN, or at ERROR when they ended in a 5xx.
func (l *Logger) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		errs := domain.NewErrorContainer()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(domain.WithErrorContainer(r.Context(), errs)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []slog.Attr{
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(started)),
		}

		level := slog.LevelInfo
		if recorded := errs.Unwrap(); len(recorded) > 0 {
			level = slog.LevelWarn
			group := make([]any, 0, len(recorded))
			for i, err := range recorded {
				group = append(group, slog.Any(strconv.Itoa(i+1), domain.Loggable(err)))
			}
			attrs = append(attrs, slog.Group("errors", group...))
		}
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		l.logger.LogAttrs(r.Context(), level, "request", attrs...)
	})
}
