package services

import (
	"context"
	"testing"
	"time"

	"github.com/dayoung-p/maumlog/internal/ai"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatFixture struct {
	store   *fakeRecordStore
	replier *fakeReplier
	chat    *ChatService
	record  *models.UserRecord
	sctx    *SessionContext
	clock   time.Time
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	store := newFakeRecordStore()
	records := NewRecordService(store)
	replier := &fakeReplier{reply: "힘드셨겠네요"}

	f := &chatFixture{
		store:   store,
		replier: replier,
		record:  NewUserRecord("alice", "Alice"),
		sctx:    &SessionContext{},
		clock:   time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC),
	}
	store.records["alice"] = f.record
	store.puts = 0

	goals := NewGoalService(records)
	goals.now = f.now

	f.chat = NewChatService(records, goals, replier)
	f.chat.now = f.now
	return f
}

func (f *chatFixture) now() time.Time {
	return f.clock
}

func (f *chatFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestSelectEmotionStartsSession(t *testing.T) {
	f := newChatFixture(t)

	err := f.chat.SelectEmotion(context.Background(), f.record, f.sctx, models.EmotionAnxiety)
	require.NoError(t, err)

	assert.NotEmpty(t, f.sctx.ChatID)
	assert.True(t, f.sctx.Started)
	assert.Equal(t, models.EmotionAnxiety, f.sctx.Emotion)

	require.Len(t, f.sctx.Messages, 2)
	assert.Equal(t, models.RoleSystem, f.sctx.Messages[0].Role)
	assert.Equal(t, models.RoleAssistant, f.sctx.Messages[1].Role)
	assert.Equal(t, ai.Greeting(models.EmotionAnxiety), f.sctx.Messages[1].Content)

	assert.Empty(t, f.record.ChatSessions, "no session may be persisted before a user message")
	assert.Zero(t, f.store.puts)
}

func TestSelectEmotionRejectsUnknownEmotion(t *testing.T) {
	f := newChatFixture(t)

	err := f.chat.SelectEmotion(context.Background(), f.record, f.sctx, models.Emotion("행복하지않음"))
	assert.Error(t, err)
	assert.False(t, f.sctx.Started)
}

func TestSelectEmotionMidSessionKeepsTranscriptAndID(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionSadness))
	id := f.sctx.ChatID
	_, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "오늘 힘들었어요")
	require.NoError(t, err)

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionAnxiety))

	assert.Equal(t, id, f.sctx.ChatID, "correction must not mint a new session")
	assert.Equal(t, models.EmotionAnxiety, f.sctx.Emotion)
	assert.Equal(t, ai.SystemPrompt(models.EmotionAnxiety), f.sctx.Messages[0].Content)
	assert.Len(t, f.sctx.Messages, 4, "transcript survives the relabel")

	// The already-persisted session is relabeled in place.
	require.Len(t, f.record.ChatSessions, 1)
	assert.Equal(t, models.EmotionAnxiety, f.record.ChatSessions[0].Emotion)
}

func TestPostUserMessageRequiresActiveSession(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.PostUserMessage(context.Background(), f.record, f.sctx, "안녕하세요")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestPostUserMessageAppendsTurnAndSaves(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionAnxiety))

	reply, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "오늘 힘들었어요")
	require.NoError(t, err)
	assert.Equal(t, "힘드셨겠네요", reply)

	require.Len(t, f.sctx.Messages, 4)
	assert.Equal(t, models.RoleUser, f.sctx.Messages[2].Role)
	assert.Equal(t, models.RoleAssistant, f.sctx.Messages[3].Role)

	require.Len(t, f.record.ChatSessions, 1)
	session := f.record.ChatSessions[0]
	assert.Equal(t, f.sctx.ChatID, session.ID)
	assert.Equal(t, "오늘 힘들었어요", session.Preview)
	assert.Len(t, session.Messages, 3, "system prompt is never persisted")
	for _, msg := range session.Messages {
		assert.NotEqual(t, models.RoleSystem, msg.Role)
	}
}

func TestReplyContextKeepsOnlyFirstAssistantTurn(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionJoy))
	_, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "첫 번째 이야기")
	require.NoError(t, err)
	_, err = f.chat.PostUserMessage(ctx, f.record, f.sctx, "두 번째 이야기")
	require.NoError(t, err)

	require.Len(t, f.replier.calls, 2)
	second := f.replier.calls[1]

	// system + greeting + both user turns; the first generated reply is
	// not replayed upstream.
	require.Len(t, second, 4)
	assert.Equal(t, models.RoleSystem, second[0].Role)
	assert.Equal(t, ai.Greeting(models.EmotionJoy), second[1].Content)
	assert.Equal(t, "첫 번째 이야기", second[2].Content)
	assert.Equal(t, "두 번째 이야기", second[3].Content)
}

func TestPostUserMessageSubstitutesFallbackOnReplyFailure(t *testing.T) {
	f := newChatFixture(t)
	f.replier.err = ai.ErrReplyGeneration
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionAnger))

	reply, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "정말 화가 나요")
	require.NoError(t, err, "provider failure must not fail the turn")
	assert.Equal(t, ai.FallbackReply, reply)

	require.Len(t, f.sctx.Messages, 4)
	assert.Equal(t, ai.FallbackReply, f.sctx.Messages[3].Content)
	require.Len(t, f.record.ChatSessions, 1, "the user's message is still saved")
}

func TestSaveGuards(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	// Nothing selected yet.
	saved, err := f.chat.Save(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.False(t, saved)

	// Greeting only, no user turn.
	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionStress))
	saved, err = f.chat.Save(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.False(t, saved)

	// Messages without an emotion.
	f.sctx.Emotion = ""
	f.sctx.Messages = append(f.sctx.Messages, models.Message{Role: models.RoleUser, Content: "저장해줘"})
	saved, err = f.chat.Save(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.False(t, saved)

	assert.Empty(t, f.record.ChatSessions)
}

func TestSaveIsIdempotent(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionGratitude))
	_, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "감사한 하루였어요")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		saved, err := f.chat.Save(ctx, f.record, f.sctx)
		require.NoError(t, err)
		assert.True(t, saved)
	}

	require.Len(t, f.record.ChatSessions, 1)
	assert.Len(t, f.record.ChatSessions[0].Messages, 3)
}

func TestMaybeAutosaveGate(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionJoy))
	f.sctx.Messages = append(f.sctx.Messages, models.Message{Role: models.RoleUser, Content: "좋은 일이 있었어요"})

	saved, err := f.chat.MaybeAutosave(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.False(t, saved, "interval has not elapsed")

	f.advance(AutosaveInterval)
	saved, err = f.chat.MaybeAutosave(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.True(t, saved)

	// The save resets the gate.
	saved, err = f.chat.MaybeAutosave(ctx, f.record, f.sctx)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestResumeRebuildsContext(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionLoneliness))
	_, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "혼자인 것 같아요")
	require.NoError(t, err)
	id := f.sctx.ChatID

	require.NoError(t, f.chat.Close(ctx, f.record, f.sctx))
	assert.Empty(t, f.sctx.ChatID)

	session, err := f.chat.Resume(ctx, f.record, f.sctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, session.ID)

	assert.Equal(t, id, f.sctx.ChatID)
	assert.True(t, f.sctx.Started)
	assert.Equal(t, models.EmotionLoneliness, f.sctx.Emotion)
	assert.Equal(t, ai.SystemPrompt(models.EmotionLoneliness), f.sctx.Messages[0].Content)
	assert.Len(t, f.sctx.Messages, 4, "system prompt plus the stored transcript")

	// Continuing the conversation upserts in place.
	_, err = f.chat.PostUserMessage(ctx, f.record, f.sctx, "조금 나아졌어요")
	require.NoError(t, err)
	require.Len(t, f.record.ChatSessions, 1)
	assert.Len(t, f.record.ChatSessions[0].Messages, 5)
}

func TestResumeUnknownSession(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.Resume(context.Background(), f.record, f.sctx, "chat_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCloseClearsStateEvenWhenSaveFails(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionRegret))
	f.sctx.Messages = append(f.sctx.Messages, models.Message{Role: models.RoleUser, Content: "후회돼요"})

	f.store.putErr = errStorageDown
	err := f.chat.Close(ctx, f.record, f.sctx)
	assert.Error(t, err)
	assert.Equal(t, SessionContext{}, *f.sctx, "state is cleared regardless of the save outcome")
}

func TestDeleteSession(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionJoy))
	_, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "지울 이야기")
	require.NoError(t, err)
	id := f.sctx.ChatID

	require.NoError(t, f.chat.DeleteSession(ctx, f.record, f.sctx, id))
	assert.Empty(t, f.record.ChatSessions)
	assert.Equal(t, SessionContext{}, *f.sctx, "deleting the open session clears it")

	err = f.chat.DeleteSession(ctx, f.record, f.sctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFullConversationScenario(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	require.NoError(t, f.chat.SelectEmotion(ctx, f.record, f.sctx, models.EmotionAnxiety))
	reply, err := f.chat.PostUserMessage(ctx, f.record, f.sctx, "오늘 힘들었어요")
	require.NoError(t, err)
	assert.Equal(t, "힘드셨겠네요", reply)

	require.NoError(t, f.chat.Close(ctx, f.record, f.sctx))

	require.Len(t, f.record.ChatSessions, 1)
	session := f.record.ChatSessions[0]
	assert.Equal(t, models.EmotionAnxiety, session.Emotion)
	assert.Equal(t, "오늘 힘들었어요", session.Preview)
	require.Len(t, session.Messages, 3)
	assert.Equal(t, models.RoleAssistant, session.Messages[0].Role)
	assert.Equal(t, "오늘 힘들었어요", session.Messages[1].Content)
	assert.Equal(t, "힘드셨겠네요", session.Messages[2].Content)

	assert.False(t, f.sctx.Started)
}
