package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRecordRepository stores one UserRecord document per username.
type UserRecordRepository struct {
	collection *mongo.Collection
}

// NewUserRecordRepository creates a new instance of UserRecordRepository.
func NewUserRecordRepository(db *mongo.Database) *UserRecordRepository {
	return &UserRecordRepository{
		collection: db.Collection("user_records"),
	}
}

// Get retrieves the record for a username.
func (r *UserRecordRepository) Get(ctx context.Context, username string) (*models.UserRecord, error) {
	var record models.UserRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logrus.WithFields(logrus.Fields{
			"username": username,
			"error":    err,
		}).Error("Failed to load user record")
		return nil, fmt.Errorf("failed to load user record: %v", err)
	}
	return &record, nil
}

// Put writes the whole record, replacing any previous version.
// Last write wins; there is no optimistic concurrency control.
func (r *UserRecordRepository) Put(ctx context.Context, record *models.UserRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": record.Username}, record, opts)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": record.Username,
			"error":    err,
		}).Error("Failed to save user record")
		return fmt.Errorf("failed to save user record: %v", err)
	}

	logrus.WithField("username", record.Username).Info("User record saved")
	return nil
}

// All returns every stored user record. Used by background jobs.
func (r *UserRecordRepository) All(ctx context.Context) ([]*models.UserRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user records: %v", err)
	}
	defer cursor.Close(ctx)

	var records []*models.UserRecord
	for cursor.Next(ctx) {
		var record models.UserRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode user record: %v", err)
		}
		records = append(records, &record)
	}

	return records, nil
}
