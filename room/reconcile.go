package room

import "context"

// View is everything a freshly (re)connected client needs to believe about
// a room. It is built only from server state; nothing the client cached
// before disconnecting is trusted.
type View struct {
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	OwnerID         int64         `json:"ownerId"`
	Status          Status        `json:"status"`
	CategoryIndex   int           `json:"categoryIndex"`
	CategoryCount   int           `json:"categoryCount"`
	CurrentCategory *Category     `json:"currentCategory,omitempty"`
	Participants    []Participant `json:"participants"`
	HasVoted        bool          `json:"hasVoted"`
	VotedCount      int           `json:"votedCount"`
	ExpectedVoters  int           `json:"expectedVoters"`
}

// Reconcile rebuilds a participant's view of a room after a reconnect. A
// room that was closed or evicted surfaces as ErrRoomNotFound, which the
// caller must treat as "this room no longer exists", not as transient.
func (s *Session) Reconcile(ctx context.Context, code string, participantID int64) (*View, error) {
	r, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusClosed {
		return nil, ErrRoomNotFound
	}

	v := &View{
		Code:          r.Code,
		Name:          r.Name,
		OwnerID:       r.OwnerID,
		Status:        r.status,
		CategoryIndex: r.currentIndex,
		CategoryCount: len(r.Sequence),
		Participants:  r.participantsLocked(),
	}

	if r.status == StatusVoting && r.currentIndex >= 0 && r.currentIndex < len(r.Categories) {
		v.CurrentCategory = r.Categories[r.currentIndex]
	}
	if r.poll != nil {
		v.HasVoted = r.poll.hasVoted(participantID)
		v.VotedCount = r.poll.votedCount()
		v.ExpectedVoters = r.poll.ExpectedVoters
	}
	return v, nil
}
