package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dayoung-p/maumlog/internal/analytics"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// previewRuneLimit caps the preview text in session listings. The stored
// preview keeps the full first message; truncation is display-only.
const previewRuneLimit = 100

// ChatHandler handles HTTP requests for the chat-session lifecycle.
type ChatHandler struct {
	Records  *services.RecordService
	Chat     *services.ChatService
	Registry *services.ContextRegistry
}

// NewChatHandler creates a new instance of ChatHandler.
func NewChatHandler(records *services.RecordService, chat *services.ChatService, registry *services.ContextRegistry) *ChatHandler {
	return &ChatHandler{
		Records:  records,
		Chat:     chat,
		Registry: registry,
	}
}

// EmotionsHandler lists the selectable emotions with their icons and
// descriptions. Public, no auth.
func (h *ChatHandler) EmotionsHandler(w http.ResponseWriter, r *http.Request) {
	type emotionInfo struct {
		Emotion     models.Emotion `json:"emotion"`
		Icon        string         `json:"icon"`
		Description string         `json:"description"`
	}
	catalog := make([]emotionInfo, 0, len(models.Emotions))
	for _, e := range models.Emotions {
		catalog = append(catalog, emotionInfo{Emotion: e, Icon: e.Icon(), Description: e.Description()})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(catalog)
}

// SelectEmotionHandler starts (or relabels) the chat session for the
// chosen emotion and returns the opening transcript.
func (h *ChatHandler) SelectEmotionHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("SelectEmotionHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Emotion string `json:"emotion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	emotion, err := models.ParseEmotion(req.Emotion)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	if err := h.Chat.SelectEmotion(r.Context(), record, sctx, emotion); err != nil {
		log.WithError(err).Error("Failed to select emotion")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"chat_id":  sctx.ChatID,
		"emotion":  sctx.Emotion,
		"icon":     sctx.Emotion.Icon(),
		"messages": visibleMessages(sctx.Messages),
	})
}

// MessageHandler appends a user turn and returns the assistant reply.
func (h *ChatHandler) MessageHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("MessageHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	reply, err := h.Chat.PostUserMessage(r.Context(), record, sctx, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrNoActiveSession) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"reply": reply})
}

// SaveHandler saves the current session explicitly.
func (h *ChatHandler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("SaveHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	saved, err := h.Chat.Save(r.Context(), record, sctx)
	if err != nil {
		log.WithError(err).Error("Failed to save chat session")
		http.Error(w, "Failed to save chat session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"saved": saved})
}

// CloseHandler ends the current session. The in-memory state is cleared
// even when the final save fails; the failure is reported as a warning.
func (h *ChatHandler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("CloseHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	response := map[string]interface{}{"closed": true}
	if err := h.Chat.Close(r.Context(), record, sctx); err != nil {
		log.WithField("username", claims.Username).WithError(err).Warn("Final save on close failed")
		response["warning"] = "session closed but the final save failed"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListSessionsHandler returns saved-session summaries, newest first, with
// optional emotion and date filters. Visiting the list also drives the
// periodic autosave of the conversation in progress.
func (h *ChatHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filters, err := parseSessionFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	if _, err := h.Chat.MaybeAutosave(r.Context(), record, sctx); err != nil {
		log.WithField("username", claims.Username).WithError(err).Warn("Periodic autosave failed")
	}

	sessions := analytics.SortByDateDesc(filters.apply(record.ChatSessions))
	summaries := make([]map[string]interface{}, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, map[string]interface{}{
			"id":            session.ID,
			"date":          session.Date,
			"emotion":       session.Emotion,
			"icon":          session.Emotion.Icon(),
			"preview":       truncateRunes(session.Preview, previewRuneLimit),
			"message_count": len(session.Messages),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// GetSessionHandler returns one saved session with its full transcript.
func (h *ChatHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	session := record.SessionByID(mux.Vars(r)["id"])
	if session == nil {
		http.Error(w, "Chat session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// ResumeSessionHandler reopens a saved session for further conversation.
func (h *ChatHandler) ResumeSessionHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("ResumeSessionHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	session, err := h.Chat.Resume(r.Context(), record, sctx, mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to resume chat session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"chat_id":  session.ID,
		"emotion":  session.Emotion,
		"icon":     session.Emotion.Icon(),
		"messages": visibleMessages(sctx.Messages),
	})
}

// DeleteSessionHandler removes a saved session.
func (h *ChatHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("DeleteSessionHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	sctx := h.Registry.Get(claims.Username)
	if err := h.Chat.DeleteSession(r.Context(), record, sctx, mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.WithError(err).Error("Failed to delete chat session")
		http.Error(w, "Failed to delete chat session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"deleted": true})
}

// visibleMessages strips the system prompt from a transcript.
func visibleMessages(messages []models.Message) []models.Message {
	visible := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		visible = append(visible, msg)
	}
	return visible
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
