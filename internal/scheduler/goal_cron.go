package cron

import (
	"context"

	"github.com/dayoung-p/maumlog/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartGoalCronJobs schedules the daily goal deadline scan.
func StartGoalCronJobs(scanner *jobs.GoalDeadlineScanner) {
	c := cron.New()

	// Retire overdue goals at midnight
	c.AddFunc("0 0 * * *", func() {
		if err := scanner.RunDailyScan(context.Background()); err != nil {
			logrus.WithError(err).Error("Goal deadline scan failed")
		}
	})

	c.Start()
}
