package storage

import "time"

type OptionRecord struct {
	ID       int64  `dynamodbav:"ID" json:"id"`
	Name     string `dynamodbav:"Name" json:"name"`
	PhotoURL string `dynamodbav:"PhotoUrl" json:"photoUrl"`
}

// CategoryRecord mirrors what the category service writes: the category
// with its options embedded in one item.
type CategoryRecord struct {
	ID          int64          `dynamodbav:"PK" json:"id"`
	Name        string         `dynamodbav:"Name" json:"name"`
	Type        string         `dynamodbav:"Type" json:"type"`
	Description string         `dynamodbav:"Description" json:"description"`
	PhotoURL    string         `dynamodbav:"PhotoUrl" json:"photoUrl"`
	Options     []OptionRecord `dynamodbav:"Options" json:"options"`
}

type SetRecord struct {
	ID          int64   `dynamodbav:"PK" json:"id"`
	Name        string  `dynamodbav:"Name" json:"name"`
	CategoryIDs []int64 `dynamodbav:"CategoryIDs" json:"categoryIds"`
	AuthorID    int64   `dynamodbav:"AuthorID" json:"authorId"`
	IsPublic    bool    `dynamodbav:"IsPublic" json:"isPublic"`
	Views       int64   `dynamodbav:"Views" json:"views"`
}

type OptionCountRecord struct {
	OptionID int64 `dynamodbav:"OptionID" json:"optionId"`
	Count    int   `dynamodbav:"Count" json:"count"`
}

type CategoryResultRecord struct {
	CategoryID        int64               `dynamodbav:"CategoryID" json:"categoryId"`
	SetID             *int64              `dynamodbav:"SetID" json:"setId,omitempty"`
	OptionCounts      []OptionCountRecord `dynamodbav:"OptionCounts" json:"optionCounts"`
	ParticipantsCount int                 `dynamodbav:"ParticipantsCount" json:"participantsCount"`
}

// ResultSetRecord is written exactly once per room, at the moment voting
// finishes, and is read-only afterwards.
type ResultSetRecord struct {
	RoomCode   string                 `dynamodbav:"PK" json:"roomCode"`
	Categories []CategoryResultRecord `dynamodbav:"Categories" json:"categories"`
	CreatedAt  time.Time              `dynamodbav:"CreatedAt" json:"createdAt"`
}
