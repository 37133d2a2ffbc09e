package broadcast

import (
	"sync"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/metrics"
	"github.com/Kambolo/Picksy/room"
	"github.com/google/uuid"
)

const defaultQueueSize = 32

// Subscriber is one listener on a room's event stream. Events arrive on C
// in publish order until the subscriber is unsubscribed or dropped.
type Subscriber struct {
	ID            uuid.UUID
	RoomCode      string
	ParticipantID int64
	C             chan room.Event

	once sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.C) })
}

// Hub is the in-process fan-out of room events. Publish never blocks: a
// subscriber whose queue is full is disconnected rather than slowing the
// room down, and the registered drop handler is told so it can treat the
// participant as departed.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[uuid.UUID]*Subscriber
	queueSize int
	onDrop    func(roomCode string, participantID int64)
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		rooms:     make(map[string]map[uuid.UUID]*Subscriber),
		queueSize: queueSize,
	}
}

// OnDrop registers the callback invoked when a subscriber is forcibly
// disconnected (queue overflow). Must be set before the hub is used.
func (h *Hub) OnDrop(fn func(roomCode string, participantID int64)) {
	h.mu.Lock()
	h.onDrop = fn
	h.mu.Unlock()
}

// Subscribe attaches a listener to a room's event stream.
func (h *Hub) Subscribe(roomCode string, participantID int64) *Subscriber {
	sub := &Subscriber{
		ID:            uuid.New(),
		RoomCode:      roomCode,
		ParticipantID: participantID,
		C:             make(chan room.Event, h.queueSize),
	}

	h.mu.Lock()
	subs := h.rooms[roomCode]
	if subs == nil {
		subs = make(map[uuid.UUID]*Subscriber)
		h.rooms[roomCode] = subs
	}
	subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe detaches a listener and closes its channel. Idempotent.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if subs, ok := h.rooms[sub.RoomCode]; ok {
		delete(subs, sub.ID)
		if len(subs) == 0 {
			delete(h.rooms, sub.RoomCode)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Publish delivers an event to every subscriber of the room. Slow
// subscribers are dropped, never waited on.
func (h *Hub) Publish(roomCode string, event room.Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[roomCode]))
	for _, sub := range h.rooms[roomCode] {
		subs = append(subs, sub)
	}
	onDrop := h.onDrop
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.C <- event:
		default:
			logging.Log.Warnf("HUB: subscriber %s on %s overflowed, disconnecting", sub.ID, roomCode)
			metrics.SubscribersDropped.Inc()
			h.Unsubscribe(sub)
			if onDrop != nil {
				onDrop(roomCode, sub.ParticipantID)
			}
		}
	}
}

// SubscriberCount reports how many listeners a room currently has.
func (h *Hub) SubscriberCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

// CloseRoom disconnects every subscriber of a room, used when the room is
// evicted.
func (h *Hub) CloseRoom(roomCode string) {
	h.mu.Lock()
	subs := h.rooms[roomCode]
	delete(h.rooms, roomCode)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
