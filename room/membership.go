package room

import (
	"context"
	"math/rand"
	"time"

	"github.com/Kambolo/Picksy/logging"
)

// Guests get synthetic negative ids. Kept below the largest integer a JS
// client can hold exactly.
const maxGuestID = 1<<53 - 1

// Join adds a participant to a room, or silently succeeds when the same id
// is already a member (reconnect). A zero userID requests a guest identity
// and the assigned negative id is returned; reconnecting guests present
// that id like any registered user. New participants are rejected once
// voting has started; rejoining members are not.
func (s *Session) Join(ctx context.Context, code string, userID int64, username string) (int64, error) {
	r, err := s.registry.Get(code)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	if r.status == StatusClosed {
		r.mu.Unlock()
		return 0, ErrRoomClosed
	}

	if userID != 0 {
		if p, ok := r.participants[userID]; ok {
			p.LastSeen = time.Now().UTC()
			r.touchLocked()
			r.mu.Unlock()
			logging.Log.Infof("ROOM: participant %d rejoined %s", userID, code)
			return userID, nil
		}
	}

	if r.status != StatusWaiting {
		r.mu.Unlock()
		return 0, ErrVotingStarted
	}

	if userID == 0 {
		for {
			userID = -(rand.Int63n(maxGuestID) + 1)
			if _, taken := r.participants[userID]; !taken {
				break
			}
		}
	}

	r.participants[userID] = &Participant{
		ID:       userID,
		Username: username,
		LastSeen: time.Now().UTC(),
	}
	r.touchLocked()
	count := len(r.participants)
	r.mu.Unlock()

	logging.Log.Infof("ROOM: participant %d (%s) joined %s, now %d members", userID, username, code, count)
	s.publish(code, EventParticipantJoined, ParticipantJoinedData{ID: userID, Username: username})
	return userID, nil
}

// Leave removes a participant. Leaving twice, or leaving a room you never
// joined, is not an error: transports retry and disconnect callbacks race
// with explicit leaves.
func (s *Session) Leave(ctx context.Context, code string, userID int64) error {
	r, err := s.registry.Get(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	_, present := r.participants[userID]
	if present {
		delete(r.participants, userID)
		r.touchLocked()
	}
	r.mu.Unlock()

	if present {
		logging.Log.Infof("ROOM: participant %d left %s", userID, code)
		s.publish(code, EventParticipantLeft, ParticipantLeftData{ID: userID})
	}
	return nil
}

// Touch records a heartbeat so the janitor does not prune the participant
// as a ghost connection.
func (s *Session) Touch(code string, userID int64) {
	r, err := s.registry.Get(code)
	if err != nil {
		return
	}
	r.mu.Lock()
	if p, ok := r.participants[userID]; ok {
		p.LastSeen = time.Now().UTC()
	}
	r.mu.Unlock()
}

// Snapshot returns the current membership of a room.
func (s *Session) Snapshot(code string) ([]Participant, error) {
	r, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}
	return r.Participants(), nil
}
