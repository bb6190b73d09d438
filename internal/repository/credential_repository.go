package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// CredentialRepository handles database operations for login credentials.
type CredentialRepository struct {
	collection *mongo.Collection
}

// NewCredentialRepository creates a new instance of CredentialRepository.
func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{
		collection: db.Collection("credentials"),
	}
}

// Find retrieves a credential by username.
func (r *CredentialRepository) Find(ctx context.Context, username string) (*models.Credential, error) {
	var cred models.Credential
	err := r.collection.FindOne(ctx, bson.M{"_id": username}).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logrus.WithFields(logrus.Fields{
			"username": username,
			"error":    err,
		}).Error("Failed to find credential")
		return nil, fmt.Errorf("failed to find credential: %v", err)
	}
	return &cred, nil
}

// Insert stores a new credential.
func (r *CredentialRepository) Insert(ctx context.Context, cred *models.Credential) error {
	if _, err := r.collection.InsertOne(ctx, cred); err != nil {
		logrus.WithFields(logrus.Fields{
			"username": cred.Username,
			"error":    err,
		}).Error("Failed to insert credential")
		return fmt.Errorf("failed to insert credential: %v", err)
	}

	logrus.WithField("username", cred.Username).Info("Credential stored")
	return nil
}
