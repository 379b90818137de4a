package observability

import "context"

type logContextKey struct{}

// logContext holds the identifiers attached to every log line of a request.
type logContext struct {
	requestID string
	traceID   string
	spanID    string
}

func logContextFrom(ctx context.Context) logContext {
	lc, _ := ctx.Value(logContextKey{}).(logContext)
	return lc
}

func withLogContext(ctx context.Context, update func(*logContext)) context.Context {
	lc := logContextFrom(ctx)
	update(&lc)
	return context.WithValue(ctx, logContextKey{}, lc)
}

func contextFields(ctx context.Context) []Field {
	lc := logContextFrom(ctx)

	var fields []Field
	if lc.requestID != "" {
		fields = append(fields, String("request_id", lc.requestID))
	}
	if lc.traceID != "" {
		fields = append(fields, String("trace_id", lc.traceID))
	}
	if lc.spanID != "" {
		fields = append(fields, String("span_id", lc.spanID))
	}
	return fields
}

// ContextWithRequestID returns ctx carrying the inbound request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return withLogContext(ctx, func(lc *logContext) { lc.requestID = requestID })
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return logContextFrom(ctx).requestID
}

// ContextWithTraceID returns ctx carrying the active trace id.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return withLogContext(ctx, func(lc *logContext) { lc.traceID = traceID })
}

// TraceIDFromContext returns the trace id, or "".
func TraceIDFromContext(ctx context.Context) string {
	return logContextFrom(ctx).traceID
}

// ContextWithSpanID returns ctx carrying the active span id.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	return withLogContext(ctx, func(lc *logContext) { lc.spanID = spanID })
}

// SpanIDFromContext returns the span id, or "".
func SpanIDFromContext(ctx context.Context) string {
	return logContextFrom(ctx).spanID
}
