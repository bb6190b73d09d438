package jobs

import (
	"context"
	"time"

	"github.com/dayoung-p/maumlog/internal/services"
	"github.com/sirupsen/logrus"
)

// GoalDeadlineScanner retires active emotion goals whose end date has
// passed. It runs from the cron scheduler once a day.
type GoalDeadlineScanner struct {
	GoalService *services.GoalService
}

// NewGoalDeadlineScanner creates a new instance of GoalDeadlineScanner
func NewGoalDeadlineScanner(goalService *services.GoalService) *GoalDeadlineScanner {
	return &GoalDeadlineScanner{
		GoalService: goalService,
	}
}

// RunDailyScan moves every overdue active goal into its owner's history.
func (g *GoalDeadlineScanner) RunDailyScan(ctx context.Context) error {
	if err := g.GoalService.ExpireOverdue(ctx, time.Now()); err != nil {
		return err
	}
	logrus.Info("Goal deadline scan completed")
	return nil
}
