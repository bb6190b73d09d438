package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dayoung-p/maumlog/internal/config"
	"github.com/dayoung-p/maumlog/internal/handlers"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/repository"
	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCredStore struct {
	creds map[string]*models.Credential
}

func (m *memCredStore) Find(_ context.Context, username string) (*models.Credential, error) {
	cred, ok := m.creds[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cred, nil
}

func (m *memCredStore) Insert(_ context.Context, cred *models.Credential) error {
	m.creds[cred.Username] = cred
	return nil
}

type memRecordStore struct {
	records map[string]*models.UserRecord
}

func (m *memRecordStore) Get(_ context.Context, username string) (*models.UserRecord, error) {
	record, ok := m.records[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return record, nil
}

func (m *memRecordStore) Put(_ context.Context, record *models.UserRecord) error {
	m.records[record.Username] = record
	return nil
}

func (m *memRecordStore) All(_ context.Context) ([]*models.UserRecord, error) {
	records := make([]*models.UserRecord, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	return records, nil
}

type stubReplier struct {
	reply string
}

func (s stubReplier) Reply(context.Context, []models.Message) (string, error) {
	return s.reply, nil
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	cfg := &config.Config{JWTSecret: "test-secret", TokenExpiry: time.Hour}

	recordService := services.NewRecordService(&memRecordStore{records: make(map[string]*models.UserRecord)})
	authService := services.NewAuthService(&memCredStore{creds: make(map[string]*models.Credential)}, recordService)
	goalService := services.NewGoalService(recordService)
	chatService := services.NewChatService(recordService, goalService, stubReplier{reply: "힘드셨겠네요"})
	registry := services.NewContextRegistry()

	userHandler := handlers.NewUserHandler(authService, recordService, chatService, registry, cfg)
	chatHandler := handlers.NewChatHandler(recordService, chatService, registry)
	goalHandler := handlers.NewGoalHandler(recordService, goalService)
	analyticsHandler := handlers.NewAnalyticsHandler(recordService, chatService, registry)

	router := mux.NewRouter()
	router.HandleFunc("/users/register", userHandler.RegisterHandler).Methods("POST")
	router.HandleFunc("/users/login", userHandler.LoginHandler).Methods("POST")
	router.HandleFunc("/emotions", chatHandler.EmotionsHandler).Methods("GET")

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/users/me", userHandler.MeHandler).Methods("GET")
	protected.HandleFunc("/users/logout", userHandler.LogoutHandler).Methods("POST")
	protected.HandleFunc("/chat/emotion", chatHandler.SelectEmotionHandler).Methods("POST")
	protected.HandleFunc("/chat/message", chatHandler.MessageHandler).Methods("POST")
	protected.HandleFunc("/chat/close", chatHandler.CloseHandler).Methods("POST")
	protected.HandleFunc("/chat/sessions", chatHandler.ListSessionsHandler).Methods("GET")
	protected.HandleFunc("/chat/sessions/{id}", chatHandler.GetSessionHandler).Methods("GET")
	protected.HandleFunc("/chat/sessions/{id}", chatHandler.DeleteSessionHandler).Methods("DELETE")
	protected.HandleFunc("/chat/sessions/{id}/resume", chatHandler.ResumeSessionHandler).Methods("POST")
	protected.HandleFunc("/goals", goalHandler.GetGoalsHandler).Methods("GET")
	protected.HandleFunc("/goals/active", goalHandler.SetGoalHandler).Methods("PUT")
	protected.HandleFunc("/analytics/frequency", analyticsHandler.FrequencyHandler).Methods("GET")
	protected.HandleFunc("/analytics/summary", analyticsHandler.SummaryHandler).Methods("GET")

	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router *mux.Router) string {
	t.Helper()

	rec := doJSON(t, router, "POST", "/users/register", "", map[string]string{
		"username": "alice", "name": "Alice", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "POST", "/users/login", "", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestRegisterDuplicateUsername(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, "POST", "/users/register", "", map[string]string{
		"username": "alice", "name": "Other", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(t)
	registerAndLogin(t, router)

	rec := doJSON(t, router, "POST", "/users/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/chat/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "GET", "/chat/sessions", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmotionCatalog(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/emotions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var catalog []struct {
		Emotion string `json:"emotion"`
		Icon    string `json:"icon"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	require.Len(t, catalog, 10)
	assert.Equal(t, "기쁨", catalog[0].Emotion)
	assert.Equal(t, "😊", catalog[0].Icon)
}

func TestChatFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, "POST", "/chat/emotion", token, map[string]string{"emotion": "불안"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var selected struct {
		ChatID   string           `json:"chat_id"`
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selected))
	require.NotEmpty(t, selected.ChatID)
	require.Len(t, selected.Messages, 1, "greeting only, system prompt hidden")
	assert.Equal(t, models.RoleAssistant, selected.Messages[0].Role)

	rec = doJSON(t, router, "POST", "/chat/message", token, map[string]string{"content": "오늘 힘들었어요"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var turn struct {
		Reply string `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	assert.Equal(t, "힘드셨겠네요", turn.Reply)

	rec = doJSON(t, router, "GET", "/chat/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []struct {
		ID      string `json:"id"`
		Emotion string `json:"emotion"`
		Preview string `json:"preview"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, selected.ChatID, sessions[0].ID)
	assert.Equal(t, "불안", sessions[0].Emotion)
	assert.Equal(t, "오늘 힘들었어요", sessions[0].Preview)

	rec = doJSON(t, router, "POST", "/chat/close", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "POST", fmt.Sprintf("/chat/sessions/%s/resume", selected.ChatID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "GET", "/analytics/frequency", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var freq struct {
		Total       int `json:"total"`
		Frequencies []struct {
			Emotion string  `json:"emotion"`
			Count   int     `json:"count"`
			Percent float64 `json:"percent"`
		} `json:"frequencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &freq))
	assert.Equal(t, 1, freq.Total)
	require.Len(t, freq.Frequencies, 1)
	assert.Equal(t, "불안", freq.Frequencies[0].Emotion)
	assert.InDelta(t, 100.0, freq.Frequencies[0].Percent, 1e-9)
}

func TestMessageWithoutEmotionSelection(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, "POST", "/chat/message", token, map[string]string{"content": "안녕하세요"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSelectEmotionRejectsUnknownLabel(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, "POST", "/chat/emotion", token, map[string]string{"emotion": "happy"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoalLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	rec := doJSON(t, router, "PUT", "/goals/active", token, map[string]string{
		"target_emotion": "감사",
		"description":    "감사한 순간 찾기",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Selecting the target emotion advances the goal.
	rec = doJSON(t, router, "POST", "/chat/emotion", token, map[string]string{"emotion": "감사"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/goals", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var goals struct {
		ActiveGoal *struct {
			TargetEmotion string `json:"target_emotion"`
			Progress      int    `json:"progress"`
		} `json:"active_goal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goals))
	require.NotNil(t, goals.ActiveGoal)
	assert.Equal(t, "감사", goals.ActiveGoal.TargetEmotion)
	assert.Equal(t, 5, goals.ActiveGoal.Progress)
}

func TestDeleteSessionOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := registerAndLogin(t, router)

	doJSON(t, router, "POST", "/chat/emotion", token, map[string]string{"emotion": "기쁨"})
	doJSON(t, router, "POST", "/chat/message", token, map[string]string{"content": "좋은 하루"})

	rec := doJSON(t, router, "GET", "/chat/sessions", token, nil)
	var sessions []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)

	rec = doJSON(t, router, "DELETE", "/chat/sessions/"+sessions[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "DELETE", "/chat/sessions/"+sessions[0].ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
