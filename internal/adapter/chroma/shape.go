package chroma

import "net/url"

// Shape is one of the path conventions Chroma servers have shipped.
type Shape int32

const (
	ShapeUnset Shape = iota
	// ShapeTenant is api/v2/tenants/<tenant>/databases/<db>/.
	ShapeTenant
	// ShapeLegacy is the flat api/v2/.
	ShapeLegacy
	// ShapeV1 is api/v1/.
	ShapeV1
)

func (s Shape) String() string {
	switch s {
	case ShapeTenant:
		return "v2_tenant"
	case ShapeLegacy:
		return "v2_legacy"
	case ShapeV1:
		return "v1"
	default:
		return "unset"
	}
}

var defaultCandidates = []Shape{ShapeTenant, ShapeLegacy, ShapeV1}

func (c *Client) prefix(s Shape) string {
	switch s {
	case ShapeV1:
		return "api/v1/"
	case ShapeTenant:
		return "api/v2/tenants/" + url.PathEscape(c.cfg.Tenant) +
			"/databases/" + url.PathEscape(c.cfg.Database) + "/"
	default:
		return "api/v2/"
	}
}

// candidates returns the shapes to try, in order. A pinned shape goes first;
// the others stay behind it so a stale pin costs one failed request.
func (c *Client) candidates() []Shape {
	base := defaultCandidates
	if c.cfg.APIVersion == "v1" {
		base = []Shape{ShapeV1}
	}
	pinned, ok := c.PinnedShape()
	if !ok {
		return base
	}
	out := make([]Shape, 0, len(base)+1)
	out = append(out, pinned)
	for _, s := range base {
		if s != pinned {
			out = append(out, s)
		}
	}
	return out
}

// PinnedShape returns the shape locked in by the last successful write.
func (c *Client) PinnedShape() (Shape, bool) {
	s := Shape(c.pinned.Load())
	return s, s != ShapeUnset
}

func (c *Client) pin(s Shape) {
	if old := Shape(c.pinned.Swap(int32(s))); old != s {
		c.logger.Info("chroma api shape pinned", "shape", s.String(), "previous", old.String())
	}
}
