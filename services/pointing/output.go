package pointing

import (
	"context"

	"satpoint-go/bus"
	"satpoint-go/types"
)

// Output receives every computed reading. Emit must not block the
// pipeline for longer than a period.
type Output interface {
	Emit(ctx context.Context, r types.Reading)
}

// Discard drops readings. It is the default when nothing consumes them.
var Discard Output = discard{}

type discard struct{}

func (discard) Emit(context.Context, types.Reading) {}

var topicReading = bus.T("pointing", "reading")

// BusOutput publishes readings (not retained) on "pointing/reading".
type BusOutput struct {
	Conn *bus.Connection
}

func (o BusOutput) Emit(_ context.Context, r types.Reading) {
	o.Conn.Publish(o.Conn.NewMessage(topicReading, r, false))
}

// Outputs fans a reading out to each element in order.
type Outputs []Output

func (os Outputs) Emit(ctx context.Context, r types.Reading) {
	for _, o := range os {
		o.Emit(ctx, r)
	}
}
