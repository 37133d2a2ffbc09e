package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/metrics"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet for room codes, kept uppercase so codes survive being read out
// loud or typed on a phone.
var Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const codeLength = 7

// Registry owns the process-wide table of live rooms. Lookups for
// different rooms are independent; the registry lock only guards the map
// itself, never any room's internal state.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	onEvict func(code string)
	onPrune func(code string, participantID int64)

	// overridable for tests
	generateCode func() (string, error)
}

// OnEvict registers the callback invoked after a room leaves the table,
// whatever triggered the eviction. Must be set before the registry is used.
func (reg *Registry) OnEvict(fn func(code string)) {
	reg.mu.Lock()
	reg.onEvict = fn
	reg.mu.Unlock()
}

// OnPrune registers the callback invoked for every participant the janitor
// removes, so the departure can be announced like an explicit leave.
func (reg *Registry) OnPrune(fn func(code string, participantID int64)) {
	reg.mu.Lock()
	reg.onPrune = fn
	reg.mu.Unlock()
}

func NewRegistry() *Registry {
	r := &Registry{rooms: make(map[string]*Room)}
	r.generateCode = func() (string, error) {
		return gonanoid.Generate(Alphabet, codeLength)
	}
	return r
}

// Create allocates a room with a fresh collision-checked code.
func (reg *Registry) Create(ownerID int64, name string, seq []CategoryRef, cats []*Category) (*Room, error) {
	if len(seq) == 0 {
		return nil, ErrInvalidSetup
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		c, err := reg.generateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := reg.rooms[c]; !taken {
			code = c
			break
		}
		logging.Log.Warnf("ROOM: code collision on %s, regenerating", c)
	}

	r := newRoom(code, ownerID, name, seq, cats)
	reg.rooms[code] = r
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	logging.Log.Infof("ROOM: created %s (owner %d, %d categories)", code, ownerID, len(seq))
	return r, nil
}

func (reg *Registry) Get(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Evict drops a room from memory. Idempotent.
func (reg *Registry) Evict(code string) {
	reg.mu.Lock()
	if _, ok := reg.rooms[code]; !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.rooms, code)
	metrics.ActiveRooms.Set(float64(len(reg.rooms)))
	metrics.RoomsEvicted.Inc()
	onEvict := reg.onEvict
	reg.mu.Unlock()

	logging.Log.Infof("ROOM: evicted %s", code)
	if onEvict != nil {
		onEvict(code)
	}
}

// Codes returns the codes of all live rooms, sorted.
func (reg *Registry) Codes() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (reg *Registry) snapshot() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		out = append(out, r)
	}
	return out
}

// JanitorConfig bounds the memory held by abandoned rooms and ghost
// participants.
type JanitorConfig struct {
	Interval         time.Duration
	IdleTimeout      time.Duration
	HeartbeatTimeout time.Duration
}

// RunJanitor sweeps until ctx is cancelled. WAITING rooms idle past
// IdleTimeout are evicted; participants whose last heartbeat is older than
// HeartbeatTimeout are removed while the room is still WAITING. During
// VOTING the open poll's voter snapshot is never shrunk by pruning.
func (reg *Registry) RunJanitor(ctx context.Context, cfg JanitorConfig) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.sweep(cfg)
		}
	}
}

func (reg *Registry) sweep(cfg JanitorConfig) {
	now := time.Now().UTC()
	reg.mu.RLock()
	onPrune := reg.onPrune
	reg.mu.RUnlock()

	for _, r := range reg.snapshot() {
		var pruned []int64
		r.mu.Lock()
		idle := now.Sub(r.lastActivity) > cfg.IdleTimeout
		waiting := r.status == StatusWaiting
		closed := r.status == StatusClosed
		if waiting && cfg.HeartbeatTimeout > 0 {
			for id, p := range r.participants {
				if now.Sub(p.LastSeen) > cfg.HeartbeatTimeout {
					delete(r.participants, id)
					pruned = append(pruned, id)
					logging.Log.Infof("ROOM: pruned silent participant %d from %s", id, r.Code)
				}
			}
		}
		r.mu.Unlock()

		if onPrune != nil {
			for _, id := range pruned {
				onPrune(r.Code, id)
			}
		}
		if closed || (waiting && idle) {
			reg.Evict(r.Code)
		}
	}
}
