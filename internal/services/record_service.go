package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/repository"
	"github.com/sirupsen/logrus"
)

// RecordService loads and saves user record documents, migrating legacy
// shapes on the way in. Load never fails on a missing record; it
// synthesizes and persists a fresh one instead.
type RecordService struct {
	store RecordStore
	now   func() time.Time
}

// NewRecordService creates a new instance of RecordService.
func NewRecordService(store RecordStore) *RecordService {
	return &RecordService{
		store: store,
		now:   time.Now,
	}
}

// Initialize persists an empty record for a newly registered username.
func (s *RecordService) Initialize(ctx context.Context, username, name string) error {
	record := NewUserRecord(username, name)
	if err := s.store.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to initialize record: %v", err)
	}
	return nil
}

// NewUserRecord builds an empty current-schema record.
func NewUserRecord(username, name string) *models.UserRecord {
	return &models.UserRecord{
		Username: username,
		Name:     name,
		Profile: models.Profile{
			Nickname: name,
			Theme:    "light",
		},
		ChatSessions:  []models.ChatSession{},
		EmotionGoals:  models.EmotionGoals{History: []models.Goal{}},
		SchemaVersion: models.UserRecordSchemaVersion,
	}
}

// Load returns the record for a username. A missing record is synthesized
// and persisted. Legacy documents are migrated to the current schema and
// written back immediately, so the migration runs at most once per
// document and repeated loads never duplicate the legacy session.
func (s *RecordService) Load(ctx context.Context, username string) (*models.UserRecord, error) {
	record, err := s.store.Get(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			record = NewUserRecord(username, username)
			if putErr := s.store.Put(ctx, record); putErr != nil {
				return nil, fmt.Errorf("failed to create record for %q: %v", username, putErr)
			}
			logrus.WithField("username", username).Info("Created empty user record")
			return record, nil
		}
		return nil, fmt.Errorf("failed to load record for %q: %v", username, err)
	}

	if record.SchemaVersion >= models.UserRecordSchemaVersion {
		return record, nil
	}

	s.migrate(record)
	if err := s.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist migrated record for %q: %v", username, err)
	}

	logrus.WithFields(logrus.Fields{
		"username": username,
		"sessions": len(record.ChatSessions),
	}).Info("Migrated legacy user record")
	return record, nil
}

// Save writes the whole record, last-write-wins.
func (s *RecordService) Save(ctx context.Context, record *models.UserRecord) error {
	if err := s.store.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to save record for %q: %v", record.Username, err)
	}
	return nil
}

// All returns every stored record; used by background jobs.
func (s *RecordService) All(ctx context.Context) ([]*models.UserRecord, error) {
	return s.store.All(ctx)
}

// migrate upgrades a version-less document: ensures the session list
// exists and converts any legacy flat chat history into exactly one
// synthesized session. Legacy fields are cleared so the conversion cannot
// rerun.
func (s *RecordService) migrate(record *models.UserRecord) {
	if record.ChatSessions == nil {
		record.ChatSessions = []models.ChatSession{}
	}

	if len(record.LegacyChatHistory) > 0 {
		now := s.now()

		var emotion models.Emotion
		if len(record.LegacyEmotions) > 0 {
			emotion = record.LegacyEmotions[len(record.LegacyEmotions)-1]
		}

		preview := models.LegacyPreviewFallback
		if record.LegacyChatHistory[0].Content != "" {
			preview = record.LegacyChatHistory[0].Content
		}

		record.ChatSessions = append(record.ChatSessions, models.ChatSession{
			ID:       "chat_legacy_" + now.Format(time.RFC3339Nano),
			Date:     now,
			Emotion:  emotion,
			Preview:  preview,
			Messages: record.LegacyChatHistory,
		})
	}

	record.LegacyChatHistory = nil
	record.LegacyEmotions = nil
	record.SchemaVersion = models.UserRecordSchemaVersion
}
