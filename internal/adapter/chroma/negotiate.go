package chroma

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("amplie/chroma")

// call is one logical operation, independent of shape.
type call struct {
	op      string
	method  string
	path    string // relative to the shape prefix
	body    any
	mutates bool // only mutating calls pin the shape
}

// negotiate sends cl under each candidate shape until one is accepted.
// 404 and 405 move on to the next shape; any other failure is returned as is.
func (c *Client) negotiate(ctx context.Context, cl call, out any) error {
	ctx, span := tracer.Start(ctx, "chroma."+cl.op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", cl.method), attribute.Bool("chroma.mutates", cl.mutates)))
	defer span.End()

	var body []byte
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("marshal %s request: %w", cl.op, err)
		}
		body = b
	}

	requestID := uuid.NewString()
	var lastErr error
	for _, shape := range c.candidates() {
		err := c.do(ctx, shape, cl, body, requestID, out)
		if err == nil {
			if cl.mutates {
				c.pin(shape)
			}
			span.SetAttributes(attribute.String("chroma.shape", shape.String()))
			span.SetStatus(codes.Ok, "OK")
			return nil
		}
		lastErr = err
		if !IsShapeMismatch(err) {
			break
		}
		c.logger.Debug("chroma shape mismatch",
			"op", cl.op, "shape", shape.String(), "status", StatusOf(err), "request_id", requestID)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return lastErr
}
