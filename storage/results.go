package storage

import (
	"context"
	"time"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoResultSetStorage persists final room results. It implements
// room.ResultStore.
type DynamoResultSetStorage struct {
	Client    *dynamodb.Client
	TableName string
}

func (s *DynamoResultSetStorage) Save(ctx context.Context, rs *room.ResultSet) error {
	record := toResultRecord(rs)
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		logging.Log.Errorf("RESULT: failed to marshal result set for %s: %v", rs.RoomCode, err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.TableName,
		Item:      item,
	})
	if err != nil {
		logging.Log.Errorf("RESULT: PUT failed for %s: %v", rs.RoomCode, err)
		return err
	}
	logging.Log.Infof("RESULT: persisted %d category results for %s", len(rs.Categories), rs.RoomCode)
	return nil
}

func (s *DynamoResultSetStorage) Get(ctx context.Context, roomCode string) (*room.ResultSet, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"PK": roomCode})
	if err != nil {
		logging.Log.Errorf("RESULT: failed to marshal key: %v", err)
		return nil, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.TableName,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("RESULT: GET failed for %s: %v", roomCode, err)
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrResultNotFound
	}

	var record ResultSetRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		logging.Log.Errorf("RESULT: failed to unmarshal result set: %v", err)
		return nil, err
	}
	return fromResultRecord(&record), nil
}

func toResultRecord(rs *room.ResultSet) *ResultSetRecord {
	record := &ResultSetRecord{
		RoomCode:   rs.RoomCode,
		Categories: make([]CategoryResultRecord, 0, len(rs.Categories)),
		CreatedAt:  time.Now().UTC(),
	}
	for _, c := range rs.Categories {
		counts := make([]OptionCountRecord, 0, len(c.OptionCounts))
		for _, oc := range c.OptionCounts {
			counts = append(counts, OptionCountRecord{OptionID: oc.OptionID, Count: oc.Count})
		}
		record.Categories = append(record.Categories, CategoryResultRecord{
			CategoryID:        c.CategoryID,
			SetID:             c.SetID,
			OptionCounts:      counts,
			ParticipantsCount: c.ParticipantsCount,
		})
	}
	return record
}

func fromResultRecord(record *ResultSetRecord) *room.ResultSet {
	rs := &room.ResultSet{
		RoomCode:   record.RoomCode,
		Categories: make([]room.PollResult, 0, len(record.Categories)),
	}
	for _, c := range record.Categories {
		counts := make([]room.OptionCount, 0, len(c.OptionCounts))
		for _, oc := range c.OptionCounts {
			counts = append(counts, room.OptionCount{OptionID: oc.OptionID, Count: oc.Count})
		}
		rs.Categories = append(rs.Categories, room.PollResult{
			CategoryID:        c.CategoryID,
			SetID:             c.SetID,
			OptionCounts:      counts,
			ParticipantsCount: c.ParticipantsCount,
		})
	}
	return rs
}
