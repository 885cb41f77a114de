package probe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sonarwatch/sonar/internal/telemetry"
)

// TracingRequester wraps a Requester with an OpenTelemetry span per
// request, for targets whose telemetry.enabled is true. Built on the
// same nil-safe TracerWrapper the teacher's exporter client used
// around its own HTTP calls.
type TracingRequester struct {
	Next       Requester
	Tracer     *telemetry.TracerWrapper
	TargetName string
}

func (t *TracingRequester) Get(ctx context.Context, url string) (int, error) {
	ctx, span := t.Tracer.StartSpan(ctx, "probe."+t.TargetName, trace.SpanKindClient)
	defer span.End()

	span.SetAttributes(
		attribute.String("http.url", url),
		attribute.String("sonar.target", t.TargetName),
	)

	statusCode, err := t.Next.Get(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return statusCode, err
	}

	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	span.SetStatus(codes.Ok, "")
	return statusCode, nil
}
