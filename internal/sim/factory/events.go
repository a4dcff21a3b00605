package factory

type EventKind string

const (
	EventItemProduced    EventKind = "item_produced"
	EventItemConsumed    EventKind = "item_consumed"
	EventItemTransferred EventKind = "item_transferred"
	EventItemDelivered   EventKind = "item_delivered"
)

type Event struct {
	Tick  uint64    `json:"tick"`
	Kind  EventKind `json:"kind"`
	Pos   [3]int    `json:"pos"`
	To    [3]int    `json:"to,omitempty"`
	Item  string    `json:"item"`
	Count int       `json:"count"`
}

func (e *Engine) emit(kind EventKind, pos Vec3i, item string, count int) {
	e.events = append(e.events, Event{
		Tick:  e.tick.Load(),
		Kind:  kind,
		Pos:   pos.ToArray(),
		Item:  item,
		Count: count,
	})
}

func (e *Engine) emitTransfer(from, to Vec3i, item string) {
	e.events = append(e.events, Event{
		Tick:  e.tick.Load(),
		Kind:  EventItemTransferred,
		Pos:   from.ToArray(),
		To:    to.ToArray(),
		Item:  item,
		Count: 1,
	})
}

// DrainEvents returns the buffered events and clears the bus. Call between
// ticks; quests and telemetry are the intended consumers.
func (e *Engine) DrainEvents() []Event {
	out := e.events
	e.events = nil
	return out
}
