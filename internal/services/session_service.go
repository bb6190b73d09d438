package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dayoung-p/maumlog/internal/ai"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/sirupsen/logrus"
)

// AutosaveInterval is the wall-clock gate between periodic autosaves. It is
// evaluated at the start of each interaction cycle, not by a timer thread.
const AutosaveInterval = 300 * time.Second

// SessionContext is the in-progress conversation state for one user. It is
// owned by the caller (one per authenticated user) and passed explicitly to
// every ChatService operation; it is never shared globally.
type SessionContext struct {
	ChatID     string
	Emotion    models.Emotion
	Messages   []models.Message
	Started    bool
	LastSaveAt time.Time
}

// ChatService drives the chat-session lifecycle: emotion selection, turns,
// idempotent saves, resume and close.
type ChatService struct {
	records *RecordService
	goals   *GoalService
	replier ai.Replier
	now     func() time.Time
}

// NewChatService creates a new instance of ChatService.
func NewChatService(records *RecordService, goals *GoalService, replier ai.Replier) *ChatService {
	return &ChatService{
		records: records,
		goals:   goals,
		replier: replier,
		now:     time.Now,
	}
}

// SelectEmotion starts a session for the chosen emotion, or relabels the
// session in progress when the user corrects their choice before closing.
// The session keeps its id either way. Goal progress is advanced once per
// selection event.
func (s *ChatService) SelectEmotion(ctx context.Context, record *models.UserRecord, sctx *SessionContext, emotion models.Emotion) error {
	if !emotion.Valid() {
		return fmt.Errorf("unknown emotion %q", emotion)
	}

	now := s.now()
	if sctx.ChatID == "" {
		sctx.ChatID = "chat_" + now.Format(time.RFC3339Nano)
	}

	dirty := false
	if existing := record.SessionByID(sctx.ChatID); existing != nil {
		// Already persisted under this id; relabel in place.
		existing.Emotion = emotion
		dirty = true
	}
	if s.goals.OnEmotionObserved(record, emotion) {
		dirty = true
	}
	if dirty {
		if err := s.records.Save(ctx, record); err != nil {
			logrus.WithField("username", record.Username).WithError(err).Warn("Failed to persist emotion selection")
		}
	}

	if sctx.Started {
		// Emotion correction mid-session: swap the canonical system
		// prompt, keep the transcript.
		sctx.Emotion = emotion
		if len(sctx.Messages) > 0 && sctx.Messages[0].Role == models.RoleSystem {
			sctx.Messages[0].Content = ai.SystemPrompt(emotion)
		}
		return nil
	}

	sctx.Emotion = emotion
	sctx.Messages = []models.Message{
		{Role: models.RoleSystem, Content: ai.SystemPrompt(emotion)},
		{Role: models.RoleAssistant, Content: ai.Greeting(emotion)},
	}
	sctx.Started = true
	sctx.LastSaveAt = now

	logrus.WithFields(logrus.Fields{
		"username": record.Username,
		"chat_id":  sctx.ChatID,
		"emotion":  string(emotion),
	}).Info("Chat session started")
	return nil
}

// PostUserMessage appends the user's turn, generates the assistant reply
// and autosaves. Reply failures are absorbed: the fixed fallback message is
// substituted so the user's message is never lost. A turn is appended
// whole, user and assistant together.
func (s *ChatService) PostUserMessage(ctx context.Context, record *models.UserRecord, sctx *SessionContext, text string) (string, error) {
	if !sctx.Started || sctx.Emotion == "" {
		return "", ErrNoActiveSession
	}
	if text == "" {
		return "", fmt.Errorf("message content is required")
	}

	// Periodic autosave gate, polled at the start of the interaction.
	if _, err := s.MaybeAutosave(ctx, record, sctx); err != nil {
		logrus.WithField("username", record.Username).WithError(err).Warn("Periodic autosave failed")
	}

	sctx.Messages = append(sctx.Messages, models.Message{Role: models.RoleUser, Content: text})

	reply, err := s.replier.Reply(ctx, replyContext(sctx.Messages))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"username": record.Username,
			"chat_id":  sctx.ChatID,
		}).WithError(err).Warn("Reply generation failed, substituting fallback")
		reply = ai.FallbackReply
	}
	sctx.Messages = append(sctx.Messages, models.Message{Role: models.RoleAssistant, Content: reply})

	if _, err := s.Save(ctx, record, sctx); err != nil {
		logrus.WithField("username", record.Username).WithError(err).Warn("Autosave after turn failed")
	}

	return reply, nil
}

// replyContext builds the reduced upstream context: the system prompt, all
// user turns, and only the first assistant turn (the greeting). Past
// assistant replies are not replayed to the model, bounding prompt size;
// the full transcript is still kept for storage and display.
func replyContext(messages []models.Message) []models.Message {
	reduced := make([]models.Message, 0, len(messages))
	seenAssistant := false
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			if seenAssistant {
				continue
			}
			seenAssistant = true
		}
		reduced = append(reduced, msg)
	}
	return reduced
}

// Save upserts the current session into the record and persists it.
// Idempotent: saving twice without mutation only advances the date. The
// session is not persisted unless it has at least one user-authored
// message and an emotion.
func (s *ChatService) Save(ctx context.Context, record *models.UserRecord, sctx *SessionContext) (bool, error) {
	if len(sctx.Messages) < 2 || sctx.Emotion == "" {
		return false, nil
	}

	chatMessages := make([]models.Message, 0, len(sctx.Messages))
	hasUserMessage := false
	for _, msg := range sctx.Messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		if msg.Role == models.RoleUser {
			hasUserMessage = true
		}
		chatMessages = append(chatMessages, msg)
	}
	if !hasUserMessage {
		return false, nil
	}

	now := s.now()
	session := models.ChatSession{
		ID:       sctx.ChatID,
		Date:     now,
		Emotion:  sctx.Emotion,
		Messages: chatMessages,
	}
	session.Preview = session.FirstUserMessage()

	if existing := record.SessionByID(sctx.ChatID); existing != nil {
		*existing = session
	} else {
		record.ChatSessions = append(record.ChatSessions, session)
	}

	if err := s.records.Save(ctx, record); err != nil {
		return false, err
	}

	sctx.LastSaveAt = now
	return true, nil
}

// MaybeAutosave runs Save when an emotion is selected and the autosave
// interval has elapsed since the last save.
func (s *ChatService) MaybeAutosave(ctx context.Context, record *models.UserRecord, sctx *SessionContext) (bool, error) {
	if !sctx.Started || sctx.Emotion == "" || len(sctx.Messages) < 2 {
		return false, nil
	}
	if s.now().Sub(sctx.LastSaveAt) < AutosaveInterval {
		return false, nil
	}
	return s.Save(ctx, record, sctx)
}

// Resume rehydrates a saved session into the context. The stored transcript
// is replayed verbatim and a single canonical system prompt is re-derived
// from the stored emotion. The id is reused, so later saves upsert in place.
func (s *ChatService) Resume(ctx context.Context, record *models.UserRecord, sctx *SessionContext, sessionID string) (*models.ChatSession, error) {
	session := record.SessionByID(sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages := make([]models.Message, 0, len(session.Messages)+1)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: ai.SystemPrompt(session.Emotion)})
	for _, msg := range session.Messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		messages = append(messages, msg)
	}

	sctx.ChatID = session.ID
	sctx.Emotion = session.Emotion
	sctx.Messages = messages
	sctx.Started = true
	sctx.LastSaveAt = s.now()

	logrus.WithFields(logrus.Fields{
		"username": record.Username,
		"chat_id":  session.ID,
	}).Info("Chat session resumed")
	return session, nil
}

// Close saves the session best-effort and clears the transient state. The
// transition happens even when the save fails; the error is returned so the
// caller can surface a warning.
func (s *ChatService) Close(ctx context.Context, record *models.UserRecord, sctx *SessionContext) error {
	_, err := s.Save(ctx, record, sctx)
	*sctx = SessionContext{}
	if err != nil {
		return fmt.Errorf("final save on close failed: %v", err)
	}
	return nil
}

// DeleteSession removes a stored session by id and persists the record.
func (s *ChatService) DeleteSession(ctx context.Context, record *models.UserRecord, sctx *SessionContext, sessionID string) error {
	idx := -1
	for i := range record.ChatSessions {
		if record.ChatSessions[i].ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrSessionNotFound
	}

	record.ChatSessions = append(record.ChatSessions[:idx], record.ChatSessions[idx+1:]...)
	if sctx != nil && sctx.ChatID == sessionID {
		*sctx = SessionContext{}
	}

	if err := s.records.Save(ctx, record); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"username": record.Username,
		"chat_id":  sessionID,
	}).Info("Chat session deleted")
	return nil
}
