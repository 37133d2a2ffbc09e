package room

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Kambolo/Picksy/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (b *captureBroadcaster) Publish(roomCode string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *captureBroadcaster) types() []EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

func (b *captureBroadcaster) countOf(typ EventType) int {
	n := 0
	for _, t := range b.types() {
		if t == typ {
			n++
		}
	}
	return n
}

type memoryResultStore struct {
	mu    sync.Mutex
	saved map[string]*ResultSet
	saves int
}

func newMemoryResultStore() *memoryResultStore {
	return &memoryResultStore{saved: make(map[string]*ResultSet)}
}

func (m *memoryResultStore) Save(ctx context.Context, rs *ResultSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[rs.RoomCode] = rs
	m.saves++
	return nil
}

func (m *memoryResultStore) Get(ctx context.Context, roomCode string) (*ResultSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.saved[roomCode]
	if !ok {
		return nil, errors.New("result set not found")
	}
	return rs, nil
}

type staticCatalog map[int64]*Category

func (c staticCatalog) GetCategory(ctx context.Context, id int64) (*Category, error) {
	cat, ok := c[id]
	if !ok {
		return nil, errors.New("category not found")
	}
	return cat, nil
}

func pickCategory(id int64) *Category {
	return &Category{
		ID:   id,
		Name: "category",
		Type: TypePick,
		Options: []Option{
			{ID: id*10 + 1, Name: "option a"},
			{ID: id*10 + 2, Name: "option b"},
		},
	}
}

func swipeCategory(id int64) *Category {
	cat := pickCategory(id)
	cat.Type = TypeSwipe
	return cat
}

func setupTestSession(t *testing.T, cats ...*Category) (*Session, *captureBroadcaster, *memoryResultStore) {
	t.Helper()
	logging.Log = logrus.New()

	catalog := staticCatalog{}
	for _, cat := range cats {
		catalog[cat.ID] = cat
	}

	bc := &captureBroadcaster{}
	store := newMemoryResultStore()
	return NewSession(NewRegistry(), catalog, store, bc), bc, store
}

func refsFor(cats ...*Category) []CategoryRef {
	refs := make([]CategoryRef, 0, len(cats))
	for _, cat := range cats {
		refs = append(refs, CategoryRef{CategoryID: cat.ID})
	}
	return refs
}

func TestCreateRejectsEmptySequence(t *testing.T) {
	s, _, _ := setupTestSession(t)

	_, err := s.Create(context.Background(), 1, "movie night", nil)
	assert.ErrorIs(t, err, ErrInvalidSetup)
}

func TestStartChecksPreconditions(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestSession(t, pickCategory(10))
	r, err := s.Create(ctx, 1, "movie night", refsFor(pickCategory(10)))
	require.NoError(t, err)

	t.Run("unknown room", func(t *testing.T) {
		assert.ErrorIs(t, s.Start(ctx, "NOPE123", 1), ErrRoomNotFound)
	})

	t.Run("solo room", func(t *testing.T) {
		_, err := s.Join(ctx, r.Code, 1, "alice")
		require.NoError(t, err)
		assert.ErrorIs(t, s.Start(ctx, r.Code, 1), ErrInsufficientParticipants)
	})

	t.Run("not the owner", func(t *testing.T) {
		_, err := s.Join(ctx, r.Code, 2, "bob")
		require.NoError(t, err)
		assert.ErrorIs(t, s.Start(ctx, r.Code, 2), ErrNotOwner)
	})

	t.Run("happy path then double start", func(t *testing.T) {
		require.NoError(t, s.Start(ctx, r.Code, 1))
		assert.Equal(t, StatusVoting, r.Status())
		assert.Equal(t, 0, r.CurrentIndex())
		assert.ErrorIs(t, s.Start(ctx, r.Code, 1), ErrInvalidTransition)
	})
}

func TestSubmitBallotRequiresMembershipAndOpenPoll(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestSession(t, pickCategory(10))
	r, err := s.Create(ctx, 1, "movie night", refsFor(pickCategory(10)))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}), ErrNoOpenPoll)

	_, err = s.Join(ctx, r.Code, 1, "alice")
	require.NoError(t, err)
	_, err = s.Join(ctx, r.Code, 2, "bob")
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx, r.Code, 1))

	assert.ErrorIs(t, s.SubmitBallot(ctx, r.Code, 99, []int64{101}), ErrParticipantNotInRoom)
	assert.NoError(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}))
}

func TestFullVotingSequence(t *testing.T) {
	ctx := context.Background()
	c1, c2 := pickCategory(10), pickCategory(11)
	s, bc, store := setupTestSession(t, c1, c2)

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1, c2))
	require.NoError(t, err)

	for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol"} {
		_, err := s.Join(ctx, r.Code, id, name)
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))

	// everyone votes on category 10, auto-advance fires once
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, s.SubmitBallot(ctx, r.Code, id, []int64{101}))
	}
	assert.Equal(t, 1, r.CurrentIndex())
	assert.Equal(t, StatusVoting, r.Status())
	assert.Equal(t, 1, bc.countOf(EventCategoryAdvanced))

	// category 11 with a fresh three-voter snapshot
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, s.SubmitBallot(ctx, r.Code, id, []int64{111}))
	}

	assert.Equal(t, StatusFinished, r.Status())
	assert.Equal(t, 1, bc.countOf(EventVotingFinished))

	rs, err := r.Results()
	require.NoError(t, err)
	require.Len(t, rs.Categories, 2)
	assert.Equal(t, int64(10), rs.Categories[0].CategoryID)
	assert.Equal(t, int64(11), rs.Categories[1].CategoryID)
	assert.Equal(t, 3, rs.Categories[0].ParticipantsCount)
	assert.Equal(t, []OptionCount{{OptionID: 101, Count: 3}}, rs.Categories[0].OptionCounts)

	// persisted exactly once
	assert.Equal(t, 1, store.saves)
	persisted, err := store.Get(ctx, r.Code)
	require.NoError(t, err)
	assert.Equal(t, rs, persisted)
}

func TestConcurrentAdvanceMovesIndexExactlyOnce(t *testing.T) {
	ctx := context.Background()
	c1, c2 := pickCategory(10), pickCategory(11)
	s, _, _ := setupTestSession(t, c1, c2)

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1, c2))
	require.NoError(t, err)
	for _, id := range []int64{1, 2} {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))

	// owner's manual advance racing the completion-triggered one, both
	// targeting index 0
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.advanceFrom(ctx, r.Code, 0))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.CurrentIndex())
	assert.Equal(t, StatusVoting, r.Status())

	// a late duplicate for the already-archived index is a silent no-op
	assert.NoError(t, s.advanceFrom(ctx, r.Code, 0))
	assert.Equal(t, 1, r.CurrentIndex())
}

func TestConcurrentBallotsCountEachParticipantOnce(t *testing.T) {
	ctx := context.Background()
	c1 := pickCategory(10)
	s, _, _ := setupTestSession(t, c1, pickCategory(11))

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1, pickCategory(11)))
	require.NoError(t, err)
	ids := []int64{1, 2, 3, 4, 5}
	for _, id := range ids {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))

	// every participant retries their ballot a few times in parallel
	var wg sync.WaitGroup
	for _, id := range ids {
		for retry := 0; retry < 3; retry++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_ = s.SubmitBallot(ctx, r.Code, id, []int64{101})
			}(id)
		}
	}
	wg.Wait()

	// exactly one completion: everyone voted once, advance fired once
	assert.Equal(t, 1, r.CurrentIndex())
	r.mu.Lock()
	archived := r.archived
	r.mu.Unlock()
	require.Len(t, archived, 1)
	assert.Equal(t, []OptionCount{{OptionID: 101, Count: 5}}, archived[0].OptionCounts)
}

func TestFinishEarlyPadsRemainingCategories(t *testing.T) {
	ctx := context.Background()
	c1, c2, c3 := pickCategory(10), pickCategory(11), pickCategory(12)
	s, bc, store := setupTestSession(t, c1, c2, c3)

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1, c2, c3))
	require.NoError(t, err)
	for _, id := range []int64{1, 2} {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}))

	assert.ErrorIs(t, s.Finish(ctx, r.Code, 2), ErrNotOwner)
	require.NoError(t, s.Finish(ctx, r.Code, 1))

	assert.Equal(t, StatusFinished, r.Status())
	rs, err := r.Results()
	require.NoError(t, err)
	require.Len(t, rs.Categories, 3)
	assert.Equal(t, []OptionCount{{OptionID: 101, Count: 1}}, rs.Categories[0].OptionCounts)
	assert.Empty(t, rs.Categories[1].OptionCounts)
	assert.Empty(t, rs.Categories[2].OptionCounts)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, 1, bc.countOf(EventVotingFinished))
}

func TestSwipeFlowWithMatchAndEndMarkers(t *testing.T) {
	ctx := context.Background()
	c1 := swipeCategory(10)
	s, bc, _ := setupTestSession(t, c1)

	r, err := s.Create(ctx, 1, "date night", refsFor(c1))
	require.NoError(t, err)
	for _, id := range []int64{1, 2} {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))

	require.NoError(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}))
	assert.Equal(t, 0, bc.countOf(EventMatched))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 2, []int64{101}))
	assert.Equal(t, 1, bc.countOf(EventMatched))

	// swipes alone do not advance; both must reach the end of the deck
	assert.Equal(t, StatusVoting, r.Status())
	require.NoError(t, s.EndOptions(ctx, r.Code, 1))
	assert.Equal(t, StatusVoting, r.Status())
	require.NoError(t, s.EndOptions(ctx, r.Code, 2))

	assert.Equal(t, StatusFinished, r.Status())
	rs, err := r.Results()
	require.NoError(t, err)
	assert.Equal(t, []OptionCount{{OptionID: 101, Count: 2}}, rs.Categories[0].OptionCounts)
}

func TestCloseReleasesRoom(t *testing.T) {
	ctx := context.Background()
	c1 := pickCategory(10)
	s, bc, _ := setupTestSession(t, c1)

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1))
	require.NoError(t, err)
	for _, id := range []int64{1, 2} {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}

	assert.ErrorIs(t, s.Close(ctx, r.Code, 1), ErrInvalidTransition)

	require.NoError(t, s.Start(ctx, r.Code, 1))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 2, []int64{101}))
	require.Equal(t, StatusFinished, r.Status())

	assert.ErrorIs(t, s.Close(ctx, r.Code, 2), ErrNotOwner)
	require.NoError(t, s.Close(ctx, r.Code, 1))

	assert.Equal(t, 1, bc.countOf(EventRoomClosed))
	_, err = s.registry.Get(r.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestResultsFallBackToStoreAfterEviction(t *testing.T) {
	ctx := context.Background()
	c1 := pickCategory(10)
	s, _, _ := setupTestSession(t, c1)

	r, err := s.Create(ctx, 1, "movie night", refsFor(c1))
	require.NoError(t, err)
	for _, id := range []int64{1, 2} {
		_, err := s.Join(ctx, r.Code, id, "user")
		require.NoError(t, err)
	}
	require.NoError(t, s.Start(ctx, r.Code, 1))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 1, []int64{101}))
	require.NoError(t, s.SubmitBallot(ctx, r.Code, 2, []int64{102}))
	require.NoError(t, s.Close(ctx, r.Code, 1))

	rs, err := s.Results(ctx, r.Code)
	require.NoError(t, err)
	assert.Equal(t, r.Code, rs.RoomCode)
	require.Len(t, rs.Categories, 1)
}
