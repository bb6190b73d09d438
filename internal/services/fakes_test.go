package services

import (
	"context"
	"errors"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/repository"
)

// fakeCredStore is an in-memory CredentialStore.
type fakeCredStore struct {
	creds map[string]*models.Credential
}

func newFakeCredStore() *fakeCredStore {
	return &fakeCredStore{creds: make(map[string]*models.Credential)}
}

func (f *fakeCredStore) Find(_ context.Context, username string) (*models.Credential, error) {
	cred, ok := f.creds[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cred, nil
}

func (f *fakeCredStore) Insert(_ context.Context, cred *models.Credential) error {
	f.creds[cred.Username] = cred
	return nil
}

// fakeRecordStore is an in-memory RecordStore. It counts writes and can be
// told to fail them.
type fakeRecordStore struct {
	records map[string]*models.UserRecord
	puts    int
	putErr  error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*models.UserRecord)}
}

func (f *fakeRecordStore) Get(_ context.Context, username string) (*models.UserRecord, error) {
	record, ok := f.records[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

func (f *fakeRecordStore) Put(_ context.Context, record *models.UserRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.records[record.Username] = record
	return nil
}

func (f *fakeRecordStore) All(_ context.Context) ([]*models.UserRecord, error) {
	records := make([]*models.UserRecord, 0, len(f.records))
	for _, record := range f.records {
		records = append(records, record)
	}
	return records, nil
}

// fakeReplier returns a canned reply, or an error, and records the message
// contexts it was invoked with.
type fakeReplier struct {
	reply string
	err   error
	calls [][]models.Message
}

func (f *fakeReplier) Reply(_ context.Context, messages []models.Message) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var errStorageDown = errors.New("storage unavailable")
