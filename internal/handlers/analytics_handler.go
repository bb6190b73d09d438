package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/dayoung-p/maumlog/internal/analytics"
	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

// AnalyticsHandler handles HTTP requests for emotion statistics. All
// endpoints accept the shared emotion/date filters and read the stored
// sessions only; nothing here mutates the record beyond the periodic
// autosave of the conversation in progress.
type AnalyticsHandler struct {
	Records  *services.RecordService
	Chat     *services.ChatService
	Registry *services.ContextRegistry
}

// NewAnalyticsHandler creates a new instance of AnalyticsHandler.
func NewAnalyticsHandler(records *services.RecordService, chat *services.ChatService, registry *services.ContextRegistry) *AnalyticsHandler {
	return &AnalyticsHandler{
		Records:  records,
		Chat:     chat,
		Registry: registry,
	}
}

// filteredSessions authenticates, polls the autosave gate and applies the
// query filters. A nil record return means the response is already written.
func (h *AnalyticsHandler) filteredSessions(w http.ResponseWriter, r *http.Request) []models.ChatSession {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil
	}

	filters, err := parseSessionFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return nil
	}

	sctx := h.Registry.Get(claims.Username)
	if _, err := h.Chat.MaybeAutosave(r.Context(), record, sctx); err != nil {
		log.WithField("username", claims.Username).WithError(err).Warn("Periodic autosave failed")
	}

	sessions := filters.apply(record.ChatSessions)
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return sessions
}

func emotionsOf(sessions []models.ChatSession) []models.Emotion {
	emotions := make([]models.Emotion, 0, len(sessions))
	for _, session := range sessions {
		if session.Emotion != "" {
			emotions = append(emotions, session.Emotion)
		}
	}
	return emotions
}

// FrequencyHandler returns the overall emotion frequency table.
func (h *AnalyticsHandler) FrequencyHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.filteredSessions(w, r)
	if sessions == nil {
		return
	}

	emotions := emotionsOf(sessions)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":       len(emotions),
		"frequencies": analytics.FrequencyTable(emotions),
	})
}

// WeeklyHandler returns per-ISO-week frequency tables, oldest week first.
func (h *AnalyticsHandler) WeeklyHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.filteredSessions(w, r)
	if sessions == nil {
		return
	}

	groups := analytics.GroupByISOWeek(sessions)
	keys := make([]analytics.WeekKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Week < keys[j].Week
	})

	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, map[string]interface{}{
			"year":        key.Year,
			"week":        key.Week,
			"total":       len(groups[key]),
			"frequencies": analytics.FrequencyTable(groups[key]),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// MonthlyHandler returns per-month frequency tables, oldest month first.
func (h *AnalyticsHandler) MonthlyHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.filteredSessions(w, r)
	if sessions == nil {
		return
	}

	groups := analytics.GroupByMonth(sessions)
	keys := make([]analytics.MonthKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})

	rows := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, map[string]interface{}{
			"year":        key.Year,
			"month":       int(key.Month),
			"total":       len(groups[key]),
			"frequencies": analytics.FrequencyTable(groups[key]),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// TimeOfDayHandler returns the emotion counts per time-of-day bucket.
func (h *AnalyticsHandler) TimeOfDayHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.filteredSessions(w, r)
	if sessions == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analytics.CrossTabulateByTimeOfDay(sessions))
}

// SummaryHandler returns the headline figures: session count, dominant
// emotion, diversity and the recent emotion trail.
func (h *AnalyticsHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.filteredSessions(w, r)
	if sessions == nil {
		return
	}

	summary := map[string]interface{}{
		"total_sessions":  len(sessions),
		"diversity":       analytics.Diversity(emotionsOf(sessions)),
		"recent_emotions": analytics.RecentEmotions(sessions, 3),
	}
	if dominant, ok := analytics.DominantEmotion(sessions); ok {
		summary["dominant_emotion"] = dominant
		summary["dominant_icon"] = dominant.Icon()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
