package chroma

import (
	"context"
	"net/http"
)

// Heartbeat checks that the server answers under some known shape.
func (c *Client) Heartbeat(ctx context.Context) error {
	var out map[string]any
	return c.negotiate(ctx, call{op: "heartbeat", method: http.MethodGet, path: "heartbeat"}, &out)
}
