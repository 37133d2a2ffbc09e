package room

import "sort"

// Poll is the live aggregation state for the room's currently open
// category. All methods are called while holding the owning room's mutex.
type Poll struct {
	CategoryID     int64
	SetID          *int64
	Type           CategoryType
	ExpectedVoters int

	ballots   map[int64]map[int64]struct{}
	completed map[int64]struct{}
	announced map[int64]struct{}
	closed    bool
}

func newPoll(ref CategoryRef, typ CategoryType, expectedVoters int) *Poll {
	return &Poll{
		CategoryID:     ref.CategoryID,
		SetID:          ref.SetID,
		Type:           typ,
		ExpectedVoters: expectedVoters,
		ballots:        make(map[int64]map[int64]struct{}),
		completed:      make(map[int64]struct{}),
		announced:      make(map[int64]struct{}),
	}
}

// submit records a ballot for one participant. PICK ballots replace any
// earlier submission from the same participant and complete them. SWIPE
// ballots are additive single-option events; swiping an option twice is a
// no-op. Returns option ids that just became full matches (SWIPE only).
func (p *Poll) submit(participantID int64, optionIDs []int64) []int64 {
	switch p.Type {
	case TypeSwipe:
		set := p.ballots[participantID]
		if set == nil {
			set = make(map[int64]struct{})
			p.ballots[participantID] = set
		}
		var matches []int64
		for _, id := range optionIDs {
			if _, dup := set[id]; dup {
				continue
			}
			set[id] = struct{}{}
			if p.countFor(id) == p.ExpectedVoters {
				if _, seen := p.announced[id]; !seen {
					p.announced[id] = struct{}{}
					matches = append(matches, id)
				}
			}
		}
		return matches
	default:
		set := make(map[int64]struct{}, len(optionIDs))
		for _, id := range optionIDs {
			set[id] = struct{}{}
		}
		p.ballots[participantID] = set
		p.completed[participantID] = struct{}{}
		return nil
	}
}

// markEnded completes a SWIPE participant who reached the end of the
// option deck. Idempotent.
func (p *Poll) markEnded(participantID int64) {
	p.completed[participantID] = struct{}{}
}

func (p *Poll) hasVoted(participantID int64) bool {
	_, ok := p.completed[participantID]
	return ok
}

// votedCount is always derived from the completion set, never kept as a
// separate counter, so duplicate or retried submissions cannot drift it.
func (p *Poll) votedCount() int {
	return len(p.completed)
}

func (p *Poll) isComplete() bool {
	return p.votedCount() >= p.ExpectedVoters
}

func (p *Poll) countFor(optionID int64) int {
	n := 0
	for _, set := range p.ballots {
		if _, ok := set[optionID]; ok {
			n++
		}
	}
	return n
}

// tally computes per-option distinct-voter counts fresh from the ballots.
func (p *Poll) tally() []OptionCount {
	counts := make(map[int64]int)
	for _, set := range p.ballots {
		for id := range set {
			counts[id]++
		}
	}
	out := make([]OptionCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, OptionCount{OptionID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OptionID < out[j].OptionID })
	return out
}

// result freezes the poll into its archived form.
func (p *Poll) result() PollResult {
	p.closed = true
	return PollResult{
		CategoryID:        p.CategoryID,
		SetID:             p.SetID,
		OptionCounts:      p.tally(),
		ParticipantsCount: p.ExpectedVoters,
	}
}

type OptionCount struct {
	OptionID int64 `json:"optionId"`
	Count    int   `json:"count"`
}

// PollResult is the archived outcome of one category.
type PollResult struct {
	CategoryID        int64         `json:"categoryId"`
	SetID             *int64        `json:"setId,omitempty"`
	OptionCounts      []OptionCount `json:"optionCounts"`
	ParticipantsCount int           `json:"participantsCount"`
}

// ResultSet is the final, persisted outcome of a finished room.
type ResultSet struct {
	RoomCode   string       `json:"roomCode"`
	Categories []PollResult `json:"categories"`
}
