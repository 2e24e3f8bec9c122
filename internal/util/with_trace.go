package util

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithTrace returns a logger that tags every line with the trace id of the
// span active in ctx, if any.
func WithTrace(ctx context.Context, l *zap.SugaredLogger) *zap.SugaredLogger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		l = l.With(zap.String("traceID", sc.TraceID().String()))
	}
	return l
}
