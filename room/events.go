package room

import "time"

type EventType string

const (
	EventParticipantJoined EventType = "PARTICIPANT_JOINED"
	EventParticipantLeft   EventType = "PARTICIPANT_LEFT"
	EventVotingStarted     EventType = "VOTING_STARTED"
	EventBallotProgress    EventType = "BALLOT_PROGRESS"
	EventMatched           EventType = "MATCHED"
	EventCategoryAdvanced  EventType = "CATEGORY_ADVANCED"
	EventVotingFinished    EventType = "VOTING_FINISHED"
	EventRoomClosed        EventType = "ROOM_CLOSED"
)

// Event is one state-change notification for a room. Payloads are captured
// while the room lock is held; delivery happens after it is released.
type Event struct {
	Type      EventType   `json:"type"`
	RoomCode  string      `json:"roomCode"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broadcaster fans events out to everyone listening on a room. Publish is
// fire-and-forget: it must never block on slow subscribers and a delivery
// failure to one subscriber must not affect the others.
type Broadcaster interface {
	Publish(roomCode string, event Event)
}

type ParticipantJoinedData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type ParticipantLeftData struct {
	ID int64 `json:"id"`
}

type VotingStartedData struct {
	Category *Category `json:"category"`
	Index    int       `json:"index"`
}

// BallotProgressData carries only the counter, not the tally, so nobody
// learns individual votes before results are revealed.
type BallotProgressData struct {
	VotedCount     int `json:"votedCount"`
	ExpectedVoters int `json:"expectedVoters"`
}

type MatchedData struct {
	OptionID int64 `json:"optionId"`
}

type CategoryAdvancedData struct {
	Category *Category `json:"category"`
	Index    int       `json:"index"`
}

func newEvent(typ EventType, code string, data interface{}) Event {
	return Event{Type: typ, RoomCode: code, Data: data, Timestamp: time.Now().UTC()}
}
