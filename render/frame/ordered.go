package frame

import (
	"fmt"
	"image"
)

// Kind tags the variant held by an Ordered.
type Kind uint8

const (
	// KindProduced items are drawn by the Producer that queued them, which
	// may batch consecutive items of its own.
	KindProduced Kind = iota
	// KindCustom items draw themselves.
	KindCustom
)

func (k Kind) String() string {
	if k == KindCustom {
		return "custom"
	}
	return "produced"
}

// Producer draws items it previously queued. Producers are compared by
// identity, so implementations should be pointers.
type Producer interface {
	RenderItem(dc *Context, item Ordered) error
	PickItem(dc *Context, item Ordered, pt image.Point) error
}

// OrderedRenderable is the open-ended fallback for renderables that are not
// produced by a batching renderer.
type OrderedRenderable interface {
	DistanceFromEye() float64
	Render(dc *Context) error
	Pick(dc *Context, pt image.Point) error
}

// Ordered is one deferred draw request.
type Ordered struct {
	Kind     Kind
	Distance float64
	Producer Producer
	Payload  any
	Custom   OrderedRenderable
}

// Produced queues payload for producer p at distance d.
func Produced(p Producer, payload any, d float64) Ordered {
	return Ordered{Kind: KindProduced, Distance: d, Producer: p, Payload: payload}
}

// Custom wraps a self-drawing renderable.
func Custom(r OrderedRenderable) Ordered {
	return Ordered{Kind: KindCustom, Distance: r.DistanceFromEye(), Custom: r}
}

func (o Ordered) DistanceFromEye() float64 { return o.Distance }

// From reports whether o was produced by p.
func (o Ordered) From(p Producer) bool {
	return o.Kind == KindProduced && o.Producer == p
}

func (o Ordered) Render(dc *Context) error {
	switch o.Kind {
	case KindProduced:
		return o.Producer.RenderItem(dc, o)
	case KindCustom:
		return o.Custom.Render(dc)
	}
	return fmt.Errorf("frame: unknown ordered kind %d", o.Kind)
}

func (o Ordered) Pick(dc *Context, pt image.Point) error {
	switch o.Kind {
	case KindProduced:
		return o.Producer.PickItem(dc, o, pt)
	case KindCustom:
		return o.Custom.Pick(dc, pt)
	}
	return fmt.Errorf("frame: unknown ordered kind %d", o.Kind)
}
