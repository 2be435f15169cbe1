package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/comanda/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes describing who operated the till.
const (
	AttrTerminal  = attribute.Key("pos.terminal_id")
	AttrActorRole = attribute.Key("pos.actor_role")
	AttrActorID   = attribute.Key("pos.actor_id")
)

// GinMiddleware opens one server span per request. Routes in untraced are
// long-lived streams whose single span would stay open for the whole
// session; they only get the propagated context.
func GinMiddleware(untraced ...string) gin.HandlerFunc {
	tracer := otel.Tracer("comanda/http")
	skip := make(map[string]struct{}, len(untraced))
	for _, route := range untraced {
		skip[route] = struct{}{}
	}

	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		if _, ok := skip[c.FullPath()]; ok {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))
		ctx = withRequestBaggage(ctx)
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if terminal := terminalID(c); terminal != "" {
			span.SetAttributes(AttrTerminal.String(terminal))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		// Authentication runs further down the chain and replaces the
		// request context.
		if role, id := obscontext.ActorFromContext(c.Request.Context()); role != "" {
			span.SetAttributes(AttrActorRole.String(role), AttrActorID.String(id))
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}

func terminalID(c *gin.Context) string {
	if terminal := obscontext.TerminalFromContext(c.Request.Context()); terminal != "" {
		return terminal
	}
	return strings.TrimSpace(c.GetHeader("X-Terminal-Id"))
}

func withRequestBaggage(ctx context.Context) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
