package sim

import (
	"sync"

	"github.com/google/uuid"

	"github.com/machitown/disaster-sim/internal/world"
)

// EventType categorizes timeline entries.
type EventType string

const (
	EventMove         EventType = "move"
	EventTalk         EventType = "talk"
	EventRumor        EventType = "rumor"
	EventOfficial     EventType = "official"
	EventAlert        EventType = "alert"
	EventEvacuate     EventType = "evacuate"
	EventSupport      EventType = "support"
	EventCheckin      EventType = "checkin"
	EventIntervention EventType = "intervention"
	EventActivity     EventType = "activity"
)

// EventMeta is the optional structured metadata for intervention events.
// A nil Meta means the event carries none; there is no open key/value bag.
type EventMeta struct {
	Intervention InterventionKind `json:"intervention,omitempty"`
	Combo        string           `json:"combo,omitempty"`
}

// TimelineEvent is an immutable record of one notable occurrence.
type TimelineEvent struct {
	ID       string     `json:"id"`
	Tick     int64      `json:"tick"`
	Type     EventType  `json:"type"`
	ActorID  string     `json:"actor_id,omitempty"`
	TargetID string     `json:"target_id,omitempty"`
	Pos      *world.Pos `json:"pos,omitempty"`
	Message  string     `json:"message,omitempty"`
	Meta     *EventMeta `json:"meta,omitempty"`
}

// NewEvent creates an event with a fresh id.
func NewEvent(tick int64, t EventType) TimelineEvent {
	return TimelineEvent{ID: uuid.NewString(), Tick: tick, Type: t}
}

// Timeline is an append-only log of recent events, capped at a ring size.
// Older entries fall off; recency queries are all the simulation needs, the
// durable record lives in the persistence store.
type Timeline struct {
	mu     sync.RWMutex
	events []TimelineEvent
	cap    int
}

// NewTimeline creates a ring with the given capacity.
func NewTimeline(capacity int) *Timeline {
	if capacity <= 0 {
		capacity = 256
	}
	return &Timeline{cap: capacity}
}

// Append adds an event, evicting the oldest entry when the ring is full.
func (t *Timeline) Append(e TimelineEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
	if len(t.events) > t.cap {
		t.events = t.events[len(t.events)-t.cap:]
	}
}

// Recent returns up to n of the newest events, oldest first.
func (t *Timeline) Recent(n int) []TimelineEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n <= 0 || n > len(t.events) {
		n = len(t.events)
	}
	out := make([]TimelineEvent, n)
	copy(out, t.events[len(t.events)-n:])
	return out
}

// Len returns the number of retained events.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.events)
}
