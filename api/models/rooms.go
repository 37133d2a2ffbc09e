package models

import (
	"github.com/Kambolo/Picksy/room"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CategoryRefEntry struct {
	CategoryID int64  `json:"categoryId"`
	SetID      *int64 `json:"setId,omitempty"`
}

// CreateRoomRequest carries either an explicit category sequence or a set
// id to expand into one. Exactly one of the two should be present.
type CreateRoomRequest struct {
	Name       string             `json:"name"`
	OwnerID    int64              `json:"ownerId"`
	Categories []CategoryRefEntry `json:"categories,omitempty"`
	SetID      *int64             `json:"setId,omitempty"`
}

type JoinRoomRequest struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

type JoinRoomResponse struct {
	ParticipantID int64        `json:"participantId"`
	Room          RoomResponse `json:"room"`
}

type LeaveRoomRequest struct {
	UserID int64 `json:"userId"`
}

type ParticipantEntry struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsOwner  bool   `json:"isOwner"`
}

type RoomResponse struct {
	Code                 string             `json:"code"`
	Name                 string             `json:"name"`
	OwnerID              int64              `json:"ownerId"`
	Status               room.Status        `json:"status"`
	CurrentCategoryIndex int                `json:"currentCategoryIndex"`
	Categories           []CategoryRefEntry `json:"categories"`
	Participants         []ParticipantEntry `json:"participants"`
}

// RoomSummary is the admin listing shape.
type RoomSummary struct {
	Code                 string      `json:"code"`
	Name                 string      `json:"name"`
	Status               room.Status `json:"status"`
	CurrentCategoryIndex int         `json:"currentCategoryIndex"`
	ParticipantsCount    int         `json:"participantsCount"`
	CategoriesCount      int         `json:"categoriesCount"`
}

func TransformRoomToResponse(r *room.Room) RoomResponse {
	refs := make([]CategoryRefEntry, 0, len(r.Sequence))
	for _, ref := range r.Sequence {
		refs = append(refs, CategoryRefEntry{CategoryID: ref.CategoryID, SetID: ref.SetID})
	}

	participants := make([]ParticipantEntry, 0)
	for _, p := range r.Participants() {
		participants = append(participants, ParticipantEntry{
			ID:       p.ID,
			Username: p.Username,
			IsOwner:  p.ID == r.OwnerID,
		})
	}

	return RoomResponse{
		Code:                 r.Code,
		Name:                 r.Name,
		OwnerID:              r.OwnerID,
		Status:               r.Status(),
		CurrentCategoryIndex: r.CurrentIndex(),
		Categories:           refs,
		Participants:         participants,
	}
}

func TransformRoomToSummary(r *room.Room) RoomSummary {
	return RoomSummary{
		Code:                 r.Code,
		Name:                 r.Name,
		Status:               r.Status(),
		CurrentCategoryIndex: r.CurrentIndex(),
		ParticipantsCount:    r.ParticipantCount(),
		CategoriesCount:      len(r.Sequence),
	}
}
