package room

import (
	"context"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/metrics"
)

// ResultStore persists final result sets. Implemented by the storage
// package; Save is called exactly once per room, at the transition to
// FINISHED.
type ResultStore interface {
	Save(ctx context.Context, rs *ResultSet) error
	Get(ctx context.Context, roomCode string) (*ResultSet, error)
}

// Session drives the lifecycle of every live room: membership, poll
// aggregation and state transitions. All mutations of one room happen
// inside that room's critical section; events and persistence happen after
// the lock is released, with payloads captured while it was held.
type Session struct {
	registry    *Registry
	catalog     CategoryProvider
	results     ResultStore
	broadcaster Broadcaster
}

func NewSession(registry *Registry, catalog CategoryProvider, results ResultStore, broadcaster Broadcaster) *Session {
	s := &Session{
		registry:    registry,
		catalog:     catalog,
		results:     results,
		broadcaster: broadcaster,
	}
	// janitor prunes are departures like any other, so announce them
	registry.OnPrune(func(code string, participantID int64) {
		s.publish(code, EventParticipantLeft, ParticipantLeftData{ID: participantID})
	})
	return s
}

// Registry exposes the room table for admin and reconcile reads.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Create resolves the category sequence against the catalog and registers
// a new room. The catalog is consulted only here so that starting and
// advancing voting never wait on external I/O.
func (s *Session) Create(ctx context.Context, ownerID int64, name string, seq []CategoryRef) (*Room, error) {
	if len(seq) == 0 {
		return nil, ErrInvalidSetup
	}
	cats := make([]*Category, 0, len(seq))
	for _, ref := range seq {
		cat, err := s.catalog.GetCategory(ctx, ref.CategoryID)
		if err != nil {
			logging.Log.Errorf("ROOM: failed to resolve category %d: %v", ref.CategoryID, err)
			return nil, err
		}
		cats = append(cats, cat)
	}
	return s.registry.Create(ownerID, name, seq, cats)
}

// Start transitions WAITING -> VOTING and opens the poll for the first
// category with the current membership count as the voter snapshot.
func (s *Session) Start(ctx context.Context, code string, requesterID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.OwnerID != requesterID {
		r.mu.Unlock()
		return ErrNotOwner
	}
	if r.status != StatusWaiting {
		r.mu.Unlock()
		return ErrInvalidTransition
	}
	if len(r.participants) < 2 {
		r.mu.Unlock()
		return ErrInsufficientParticipants
	}
	if r.poll != nil {
		r.mu.Unlock()
		return ErrCategoryAlreadyOpen
	}

	r.status = StatusVoting
	r.currentIndex = 0
	cat := r.Categories[0]
	r.poll = newPoll(r.Sequence[0], cat.Type, len(r.participants))
	expected := r.poll.ExpectedVoters
	r.touchLocked()
	r.mu.Unlock()

	logging.Log.Infof("ROOM: %s started voting, category %d, %d expected voters", code, cat.ID, expected)
	s.publish(code, EventVotingStarted, VotingStartedData{Category: cat, Index: 0})
	return nil
}

// SubmitBallot applies one participant's ballot to the open poll. When the
// ballot completes the poll, exactly one auto-advance fires for the
// category index the ballot landed on.
func (s *Session) SubmitBallot(ctx context.Context, code string, participantID int64, optionIDs []int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.status != StatusVoting || r.poll == nil {
		r.mu.Unlock()
		return ErrNoOpenPoll
	}
	if _, ok := r.participants[participantID]; !ok {
		r.mu.Unlock()
		return ErrParticipantNotInRoom
	}

	matches := r.poll.submit(participantID, optionIDs)
	voted := r.poll.votedCount()
	expected := r.poll.ExpectedVoters
	complete := r.poll.isComplete()
	index := r.currentIndex
	r.touchLocked()
	r.mu.Unlock()

	metrics.BallotsReceived.Inc()
	s.publish(code, EventBallotProgress, BallotProgressData{VotedCount: voted, ExpectedVoters: expected})
	for _, optionID := range matches {
		s.publish(code, EventMatched, MatchedData{OptionID: optionID})
	}
	if complete {
		return s.advanceFrom(ctx, code, index)
	}
	return nil
}

// EndOptions marks a SWIPE participant as done with the category's deck.
func (s *Session) EndOptions(ctx context.Context, code string, participantID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.status != StatusVoting || r.poll == nil {
		r.mu.Unlock()
		return ErrNoOpenPoll
	}
	if _, ok := r.participants[participantID]; !ok {
		r.mu.Unlock()
		return ErrParticipantNotInRoom
	}

	r.poll.markEnded(participantID)
	voted := r.poll.votedCount()
	expected := r.poll.ExpectedVoters
	complete := r.poll.isComplete()
	index := r.currentIndex
	r.touchLocked()
	r.mu.Unlock()

	s.publish(code, EventBallotProgress, BallotProgressData{VotedCount: voted, ExpectedVoters: expected})
	if complete {
		return s.advanceFrom(ctx, code, index)
	}
	return nil
}

// Advance is the owner's explicit "next category". It races benignly with
// the auto-advance from a completing ballot: whichever runs second finds
// the index already moved and no-ops.
func (s *Session) Advance(ctx context.Context, code string, requesterID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}
	if r.OwnerID != requesterID {
		return ErrNotOwner
	}

	r.mu.Lock()
	if r.status != StatusVoting {
		r.mu.Unlock()
		return ErrInvalidTransition
	}
	index := r.currentIndex
	r.mu.Unlock()

	return s.advanceFrom(ctx, code, index)
}

// advanceFrom archives the current poll and opens the next one, but only
// if the room is still VOTING at exactly fromIndex. Anything else means a
// concurrent advance already won, which is a silent no-op.
func (s *Session) advanceFrom(ctx context.Context, code string, fromIndex int) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.status != StatusVoting || r.currentIndex != fromIndex || r.poll == nil {
		r.mu.Unlock()
		return nil
	}

	r.archived = append(r.archived, r.poll.result())
	r.poll = nil
	r.currentIndex++
	r.touchLocked()

	if r.currentIndex == len(r.Sequence) {
		rs := s.finishLocked(r)
		r.mu.Unlock()
		s.persistResults(ctx, rs)
		s.publish(code, EventVotingFinished, nil)
		return nil
	}

	index := r.currentIndex
	cat := r.Categories[index]
	r.poll = newPoll(r.Sequence[index], cat.Type, len(r.participants))
	expected := r.poll.ExpectedVoters
	r.mu.Unlock()

	logging.Log.Infof("ROOM: %s advanced to category %d (index %d), %d expected voters", code, cat.ID, index, expected)
	s.publish(code, EventCategoryAdvanced, CategoryAdvancedData{Category: cat, Index: index})
	return nil
}

// Finish is the owner's "end voting early": the open poll is archived and
// every remaining category is reported with a zero tally.
func (s *Session) Finish(ctx context.Context, code string, requesterID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.OwnerID != requesterID {
		r.mu.Unlock()
		return ErrNotOwner
	}
	if r.status != StatusVoting {
		r.mu.Unlock()
		return ErrInvalidTransition
	}

	if r.poll != nil {
		r.archived = append(r.archived, r.poll.result())
		r.poll = nil
	}
	for i := r.currentIndex + 1; i < len(r.Sequence); i++ {
		r.archived = append(r.archived, PollResult{
			CategoryID:        r.Sequence[i].CategoryID,
			SetID:             r.Sequence[i].SetID,
			OptionCounts:      []OptionCount{},
			ParticipantsCount: 0,
		})
	}
	r.currentIndex = len(r.Sequence)
	rs := s.finishLocked(r)
	r.mu.Unlock()

	s.persistResults(ctx, rs)
	s.publish(code, EventVotingFinished, nil)
	return nil
}

// finishLocked flips the room to FINISHED and builds the final ResultSet.
// Caller holds the room lock.
func (s *Session) finishLocked(r *Room) *ResultSet {
	r.status = StatusFinished
	r.results = &ResultSet{RoomCode: r.Code, Categories: r.archived}
	logging.Log.Infof("ROOM: %s finished voting with %d category results", r.Code, len(r.archived))
	return r.results
}

func (s *Session) persistResults(ctx context.Context, rs *ResultSet) {
	if err := s.results.Save(ctx, rs); err != nil {
		// The in-memory copy stays readable until the room is closed, so a
		// failed write is not fatal to the session itself.
		logging.Log.Errorf("ROOM: failed to persist results for %s: %v", rs.RoomCode, err)
	}
}

// Close releases a finished room from memory.
func (s *Session) Close(ctx context.Context, code string, requesterID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.OwnerID != requesterID {
		r.mu.Unlock()
		return ErrNotOwner
	}
	if r.status != StatusFinished {
		r.mu.Unlock()
		return ErrInvalidTransition
	}
	r.status = StatusClosed
	r.mu.Unlock()

	s.publish(code, EventRoomClosed, nil)
	s.registry.Evict(code)
	return nil
}

// Results returns the final tally for a room, falling back to the result
// store once the room has been evicted from memory.
func (s *Session) Results(ctx context.Context, code string) (*ResultSet, error) {
	if r, err := s.registry.Get(code); err == nil {
		return r.Results()
	}
	return s.results.Get(ctx, code)
}

func (s *Session) publish(code string, typ EventType, data interface{}) {
	metrics.EventsPublished.WithLabelValues(string(typ)).Inc()
	s.broadcaster.Publish(code, newEvent(typ, code, data))
}
