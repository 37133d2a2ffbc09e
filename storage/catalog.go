package storage

import (
	"context"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// CatalogStorage is the read-only view onto the category service's data.
// The coordination core never writes here.
type CatalogStorage interface {
	GetCategory(ctx context.Context, id int64) (*room.Category, error)
	GetSet(ctx context.Context, id int64) (*SetRecord, error)
}

type DynamoCatalogStorage struct {
	Client            *dynamodb.Client
	CategoriesTable   string
	CategorySetsTable string
}

func (s *DynamoCatalogStorage) GetCategory(ctx context.Context, id int64) (*room.Category, error) {
	key, err := attributevalue.MarshalMap(map[string]int64{"PK": id})
	if err != nil {
		logging.Log.Errorf("CATALOG: failed to marshal key for category %d: %v", id, err)
		return nil, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.CategoriesTable,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("CATALOG: GetItem for category %d failed: %v", id, err)
		return nil, err
	}
	if out.Item == nil {
		logging.Log.Warnf("CATALOG: no category with ID %d", id)
		return nil, ErrCategoryNotFound
	}

	var record CategoryRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		logging.Log.Errorf("CATALOG: failed to unmarshal category: %v", err)
		return nil, err
	}
	return categoryFromRecord(&record), nil
}

func (s *DynamoCatalogStorage) GetSet(ctx context.Context, id int64) (*SetRecord, error) {
	key, err := attributevalue.MarshalMap(map[string]int64{"PK": id})
	if err != nil {
		logging.Log.Errorf("CATALOG: failed to marshal key for set %d: %v", id, err)
		return nil, err
	}

	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.CategorySetsTable,
		Key:       key,
	})
	if err != nil {
		logging.Log.Errorf("CATALOG: GetItem for set %d failed: %v", id, err)
		return nil, err
	}
	if out.Item == nil {
		logging.Log.Warnf("CATALOG: no category set with ID %d", id)
		return nil, ErrSetNotFound
	}

	var record SetRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		logging.Log.Errorf("CATALOG: failed to unmarshal set: %v", err)
		return nil, err
	}
	return &record, nil
}

func categoryFromRecord(record *CategoryRecord) *room.Category {
	options := make([]room.Option, 0, len(record.Options))
	for _, o := range record.Options {
		options = append(options, room.Option{ID: o.ID, Name: o.Name, PhotoURL: o.PhotoURL})
	}
	return &room.Category{
		ID:          record.ID,
		Name:        record.Name,
		Type:        room.CategoryType(record.Type),
		Description: record.Description,
		PhotoURL:    record.PhotoURL,
		Options:     options,
	}
}
