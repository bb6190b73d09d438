package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dayoung-p/maumlog/internal/models"
	"github.com/sirupsen/logrus"
)

// GoalProgressStep is how much one matching emotion event advances a goal.
const GoalProgressStep = 5

// GoalService tracks progress on the user's active emotion goal.
type GoalService struct {
	records *RecordService
	now     func() time.Time
}

// NewGoalService creates a new instance of GoalService.
func NewGoalService(records *RecordService) *GoalService {
	return &GoalService{
		records: records,
		now:     time.Now,
	}
}

// OnEmotionObserved advances the active goal when the observed emotion
// matches its target: +5 progress clamped to 100 plus an achievement entry.
// Reaching 100 completes the goal and moves it into history. Returns
// whether the record changed; the caller persists. Called once per
// emotion-selection event, not per chat turn.
func (s *GoalService) OnEmotionObserved(record *models.UserRecord, emotion models.Emotion) bool {
	goal := record.EmotionGoals.ActiveGoal
	if goal == nil || emotion != goal.TargetEmotion {
		return false
	}

	today := s.today()
	goal.Progress += GoalProgressStep
	if goal.Progress > 100 {
		goal.Progress = 100
	}
	goal.Achievements = append(goal.Achievements, models.Achievement{
		Date:        today,
		Description: fmt.Sprintf("목표 감정 '%s'을(를) 경험했습니다.", goal.TargetEmotion),
	})

	if goal.Progress >= 100 {
		goal.Completed = true
		goal.CompletionDate = today
		record.EmotionGoals.History = append(record.EmotionGoals.History, *goal)
		record.EmotionGoals.ActiveGoal = nil

		logrus.WithFields(logrus.Fields{
			"username": record.Username,
			"emotion":  string(emotion),
		}).Info("Emotion goal completed")
	}

	return true
}

// SetActiveGoal replaces the active goal and persists the record. A goal
// already in progress is moved to history unfinished.
func (s *GoalService) SetActiveGoal(ctx context.Context, record *models.UserRecord, goal models.Goal) error {
	if !goal.TargetEmotion.Valid() {
		return fmt.Errorf("unknown emotion %q", goal.TargetEmotion)
	}
	if goal.StartDate.IsZero() {
		goal.StartDate = s.today()
	}
	if !goal.EndDate.IsZero() && goal.EndDate.Before(goal.StartDate) {
		return fmt.Errorf("goal end date precedes start date")
	}
	goal.Progress = 0
	goal.Completed = false
	goal.Achievements = nil

	if prev := record.EmotionGoals.ActiveGoal; prev != nil {
		record.EmotionGoals.History = append(record.EmotionGoals.History, *prev)
	}
	record.EmotionGoals.ActiveGoal = &goal

	if err := s.records.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save goal: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"username": record.Username,
		"emotion":  string(goal.TargetEmotion),
	}).Info("Active emotion goal set")
	return nil
}

// ExpireOverdue moves active goals whose end date has passed into history,
// unfinished, across all user records.
func (s *GoalService) ExpireOverdue(ctx context.Context, now time.Time) error {
	records, err := s.records.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan user records: %v", err)
	}

	for _, record := range records {
		goal := record.EmotionGoals.ActiveGoal
		if goal == nil || goal.EndDate.IsZero() || !goal.EndDate.Before(now) {
			continue
		}

		record.EmotionGoals.History = append(record.EmotionGoals.History, *goal)
		record.EmotionGoals.ActiveGoal = nil

		if err := s.records.Save(ctx, record); err != nil {
			logrus.WithField("username", record.Username).WithError(err).Error("Failed to expire overdue goal")
			continue
		}
		logrus.WithFields(logrus.Fields{
			"username": record.Username,
			"emotion":  string(goal.TargetEmotion),
		}).Info("Expired overdue emotion goal")
	}

	return nil
}

func (s *GoalService) today() time.Time {
	return s.now().Truncate(24 * time.Hour)
}
