package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type querySpanKey struct{}

// PGXTracer spans every repository query. Evaluation latency is dominated by
// the rule and coupon lookups, so per-statement spans are what makes a slow
// resolve attributable.
type PGXTracer struct{}

// TraceQueryStart opens a span named after the SQL verb.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name := "db.query"
	if verb, _, ok := strings.Cut(strings.TrimSpace(data.SQL), " "); ok && verb != "" {
		name = "db." + strings.ToUpper(verb)
	}
	ctx, span := otel.Tracer("toko-promo/repo").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", statementSnippet(data.SQL)),
	)
	return context.WithValue(ctx, querySpanKey{}, span)
}

// TraceQueryEnd closes the span, marking it failed on error.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
	span.End()
}

func statementSnippet(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > 200 {
		return trimmed[:200] + "..."
	}
	return trimmed
}
