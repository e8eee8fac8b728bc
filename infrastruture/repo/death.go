package repo

import (
	"context"
	"errors"

	dmn "github.com/beka-birhanu/vinom-snake/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeathRecordRepo handles the persistence of death records.
type DeathRecordRepo struct {
	collection *mongo.Collection
}

// NewDeathRecordRepo creates a new DeathRecordRepo with the given MongoDB client, database name, and collection name.
func NewDeathRecordRepo(client *mongo.Client, dbName, collectionName string) *DeathRecordRepo {
	collection := client.Database(dbName).Collection(collectionName)
	return &DeathRecordRepo{
		collection: collection,
	}
}

// EnsureIndexes creates the index ByRun relies on.
func (d *DeathRecordRepo) EnsureIndexes(ctx context.Context) error {
	_, err := d.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "runId", Value: 1}, {Key: "diedAt", Value: -1}},
	})
	return err
}

// Save inserts a record.
func (d *DeathRecordRepo) Save(ctx context.Context, record *dmn.DeathRecord) error {
	if _, err := d.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("death record conflict")
		}
		return errors.New("unexpected error: " + err.Error())
	}
	return nil
}

// ByRun returns up to limit records of a run, newest first.
func (d *DeathRecordRepo) ByRun(ctx context.Context, runID string, limit int64) ([]*dmn.DeathRecord, error) {
	filter := bson.M{"runId": runID}
	opts := options.Find().
		SetSort(bson.D{{Key: "diedAt", Value: -1}, {Key: "tick", Value: -1}}).
		SetLimit(limit)

	cursor, err := d.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.New("unexpected error: " + err.Error())
	}
	defer cursor.Close(ctx)

	records := []*dmn.DeathRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, errors.New("unexpected error: " + err.Error())
	}
	return records, nil
}
