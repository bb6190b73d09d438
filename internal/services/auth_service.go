package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2Iterations = 4096

// AuthService verifies logins and registers new users.
type AuthService struct {
	creds   CredentialStore
	records *RecordService
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(creds CredentialStore, records *RecordService) *AuthService {
	return &AuthService{
		creds:   creds,
		records: records,
	}
}

// Register creates a credential and initializes an empty user record for
// the new username. Duplicate usernames are rejected before any write.
func (s *AuthService) Register(ctx context.Context, username, name, email, password string) (*models.Credential, error) {
	if username == "" || name == "" || password == "" {
		logrus.Warn("Missing required fields during registration")
		return nil, fmt.Errorf("username, name and password are required")
	}

	if _, err := s.creds.Find(ctx, username); err == nil {
		logrus.WithField("username", username).Warn("Username already taken")
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %v", err)
	}

	cred := &models.Credential{
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: HashPassword(password),
		CreatedAt:    time.Now(),
	}

	if err := s.creds.Insert(ctx, cred); err != nil {
		logrus.WithError(err).Error("User registration failed")
		return nil, fmt.Errorf("failed to register user: %v", err)
	}

	if err := s.records.Initialize(ctx, username, name); err != nil {
		logrus.WithError(err).Error("Failed to initialize user record")
		return nil, fmt.Errorf("failed to initialize user data: %v", err)
	}

	logrus.WithField("username", username).Info("User registered successfully")
	return cred, nil
}

// Authenticate verifies the username and password and returns the display
// name. Unknown users and wrong passwords are indistinguishable to the
// caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	cred, err := s.creds.Find(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logrus.WithField("username", username).Warn("Login attempt for unknown user")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %v", err)
	}

	if !VerifyPassword(cred.PasswordHash, password) {
		logrus.WithField("username", username).Warn("Invalid credentials")
		return "", ErrInvalidCredentials
	}

	logrus.WithField("username", username).Info("User authenticated successfully")
	return cred.Name, nil
}

// HashPassword derives a salted digest stored as "hex(digest):salt".
// The salt is a fresh random token per user.
func HashPassword(password string) string {
	salt := strings.ReplaceAll(uuid.NewString(), "-", "")
	return hashWithSalt(password, salt) + ":" + salt
}

// VerifyPassword recomputes the digest with the stored salt and compares
// in constant time.
func VerifyPassword(stored, password string) bool {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return false
	}
	digest := hashWithSalt(password, parts[1])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(parts[0])) == 1
}

func hashWithSalt(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)
}
