package room

import "errors"

var (
	ErrRoomNotFound             = errors.New("room not found")
	ErrRoomClosed               = errors.New("room is closed")
	ErrNotOwner                 = errors.New("only the room owner can do this")
	ErrInvalidTransition        = errors.New("invalid room state transition")
	ErrInvalidSetup             = errors.New("room must have at least one category")
	ErrInsufficientParticipants = errors.New("at least two participants are required to start voting")
	ErrVotingStarted            = errors.New("voting has already started")
	ErrCategoryAlreadyOpen      = errors.New("a poll is already open for this room")
	ErrNoOpenPoll               = errors.New("no poll is open for this room")
	ErrParticipantNotInRoom     = errors.New("participant is not a member of this room")
	ErrResultsNotReady          = errors.New("room has not finished voting yet")
)
