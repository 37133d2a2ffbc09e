package room

import (
	"context"
	"sync"
	"time"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusVoting   Status = "VOTING"
	StatusFinished Status = "FINISHED"
	StatusClosed   Status = "CLOSED"
)

type CategoryType string

const (
	TypePick  CategoryType = "PICK"
	TypeSwipe CategoryType = "SWIPE"
)

// CategoryRef is one entry of a room's fixed voting sequence. SetID is
// non-nil when the category was picked from a curated set.
type CategoryRef struct {
	CategoryID int64
	SetID      *int64
}

// Category is the read-only catalog detail for one votable category,
// resolved once at room creation so voting never waits on the catalog.
type Category struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Type        CategoryType `json:"type"`
	Description string       `json:"description"`
	PhotoURL    string       `json:"photoUrl"`
	Options     []Option     `json:"options"`
}

type Option struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

// CategoryProvider is the narrow interface onto the external category
// service. Implemented by the storage package.
type CategoryProvider interface {
	GetCategory(ctx context.Context, id int64) (*Category, error)
}

type Participant struct {
	ID       int64
	Username string
	LastSeen time.Time
}

// Room holds all live state of one voting session. Every field below the
// mutex is read and written only while holding it; the exported identity
// fields are immutable after creation.
type Room struct {
	Code       string
	Name       string
	OwnerID    int64
	Sequence   []CategoryRef
	Categories []*Category
	CreatedAt  time.Time

	mu           sync.Mutex
	status       Status
	currentIndex int
	participants map[int64]*Participant
	poll         *Poll
	archived     []PollResult
	results      *ResultSet
	lastActivity time.Time
}

func newRoom(code string, ownerID int64, name string, seq []CategoryRef, cats []*Category) *Room {
	now := time.Now().UTC()
	return &Room{
		Code:         code,
		Name:         name,
		OwnerID:      ownerID,
		Sequence:     seq,
		Categories:   cats,
		CreatedAt:    now,
		status:       StatusWaiting,
		currentIndex: -1,
		participants: make(map[int64]*Participant),
		lastActivity: now,
	}
}

func (r *Room) touchLocked() {
	r.lastActivity = time.Now().UTC()
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// CurrentIndex returns the position in the category sequence, -1 before
// voting starts.
func (r *Room) CurrentIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIndex
}

// ParticipantCount returns the current membership size.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// Participants returns a point-in-time copy of the membership.
func (r *Room) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

func (r *Room) participantsLocked() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	return out
}

// Results returns the final ResultSet, or ErrResultsNotReady while the
// room is still WAITING or VOTING.
func (r *Room) Results() (*ResultSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		return nil, ErrResultsNotReady
	}
	return r.results, nil
}

// LastActivity reports when the room last processed any command, used by
// the registry janitor for idle eviction.
func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}
