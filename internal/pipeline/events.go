package pipeline

import "context"

type EventType int

const (
	EventLog EventType = iota + 1
	EventProgress
	EventComplete
	EventError
)

// Event is a progress notification from a running pipeline.
type Event struct {
	Type     EventType
	RunID    string
	Stage    string
	Message  string
	Progress int32 // 0-100
}

// Emitter receives pipeline events.
type Emitter interface {
	Emit(Event)
}

type emitterKey struct{}

// WithEmitter attaches an emitter to the context.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// EmitterFrom returns the context emitter or one that discards events.
func EmitterFrom(ctx context.Context) Emitter {
	if e, ok := ctx.Value(emitterKey{}).(Emitter); ok && e != nil {
		return e
	}
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

// ChannelEmitter sends events to a channel without blocking; events are
// dropped when the channel is full.
type ChannelEmitter struct {
	Ch chan<- Event
}

func (e *ChannelEmitter) Emit(ev Event) {
	select {
	case e.Ch <- ev:
	default:
	}
}
