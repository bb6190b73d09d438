package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/dayoung-p/maumlog/pkg/middleware"
	log "github.com/sirupsen/logrus"
)

// GoalHandler handles HTTP requests for emotion goals.
type GoalHandler struct {
	Records *services.RecordService
	Goals   *services.GoalService
}

// NewGoalHandler creates a new instance of GoalHandler.
func NewGoalHandler(records *services.RecordService, goals *services.GoalService) *GoalHandler {
	return &GoalHandler{
		Records: records,
		Goals:   goals,
	}
}

// SetGoalHandler replaces the active emotion goal.
func (h *GoalHandler) SetGoalHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("SetGoalHandler called")
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		TargetEmotion string `json:"target_emotion"`
		Description   string `json:"description"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	emotion, err := models.ParseEmotion(req.TargetEmotion)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	goal := models.Goal{
		TargetEmotion: emotion,
		Description:   req.Description,
	}
	if req.StartDate != "" {
		if goal.StartDate, err = time.Parse(dateParamLayout, req.StartDate); err != nil {
			http.Error(w, "Invalid start date", http.StatusBadRequest)
			return
		}
	}
	if req.EndDate != "" {
		if goal.EndDate, err = time.Parse(dateParamLayout, req.EndDate); err != nil {
			http.Error(w, "Invalid end date", http.StatusBadRequest)
			return
		}
	}

	record, err := h.Records.Load(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "Failed to load user data", http.StatusInternalServerError)
		return
	}

	if err := h.Goals.SetActiveGoal(r.Context(), record, goal); err != nil {
		log.WithError(err).Warn("Failed to set emotion goal")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record.EmotionGoals.ActiveGoal)
}

// GetGoalsHandler returns the active goal and goal history.
func (h *GoalHandler) GetGoalsHandler(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record.EmotionGoals)
}
