package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// StackHandler is a slog handler that extracts stack traces from
// cockroachdb/errors values logged under the error attribute key.
type StackHandler struct {
	handler slog.Handler
}

// WrapByStackHandler wraps a slog handler so that records carrying an error
// attribute also emit a stacktrace attribute when one is available.
func WrapByStackHandler(handler slog.Handler) slog.Handler {
	return &StackHandler{handler: handler}
}

func (sh *StackHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return sh.handler.Enabled(ctx, l)
}

func (sh *StackHandler) Handle(ctx context.Context, r slog.Record) error {
	var stacktrace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			err, ok := attr.Value.Any().(error)
			if ok {
				stacktrace = extractStacktrace(err)
			}
			return false
		}
		return true
	})
	if stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	return sh.handler.Handle(ctx, r)
}

func (sh *StackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &StackHandler{handler: sh.handler.WithAttrs(attrs)}
}

func (sh *StackHandler) WithGroup(g string) slog.Handler {
	return &StackHandler{handler: sh.handler.WithGroup(g)}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
