package services

import (
	"context"
	"errors"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/repository"
)

// Error taxonomy surfaced to callers. Storage failures are returned
// wrapped; reply-generation failures never escape the chat service.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUser      = errors.New("username already exists")
	ErrSessionNotFound    = errors.New("chat session not found")
	ErrNoActiveSession    = errors.New("no active chat session")
)

// CredentialStore is the persistence contract for login credentials.
// Missing users are reported as repository.ErrNotFound.
type CredentialStore interface {
	Find(ctx context.Context, username string) (*models.Credential, error)
	Insert(ctx context.Context, cred *models.Credential) error
}

// RecordStore is the persistence contract for user record documents.
type RecordStore interface {
	Get(ctx context.Context, username string) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
	All(ctx context.Context) ([]*models.UserRecord, error)
}

var (
	_ CredentialStore = (*repository.CredentialRepository)(nil)
	_ RecordStore     = (*repository.UserRecordRepository)(nil)
)
