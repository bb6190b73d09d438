package models

import "time"

// Achievement records one observation of the target emotion while a goal
// was active.
type Achievement struct {
	Date        time.Time `bson:"date" json:"date"`
	Description string    `bson:"description" json:"description"`
}

// Goal is a user-defined target emotion with a progress counter. Progress
// advances once per emotion-selection event, not per chat turn.
type Goal struct {
	TargetEmotion  Emotion       `bson:"target_emotion" json:"target_emotion"`
	StartDate      time.Time     `bson:"start_date" json:"start_date"`
	EndDate        time.Time     `bson:"end_date" json:"end_date"`
	Description    string        `bson:"description" json:"description"`
	Progress       int           `bson:"progress" json:"progress"`
	Completed      bool          `bson:"completed" json:"completed"`
	CompletionDate time.Time     `bson:"completion_date,omitempty" json:"completion_date,omitempty"`
	Achievements   []Achievement `bson:"achievements,omitempty" json:"achievements,omitempty"`
}

// EmotionGoals holds at most one active goal plus all finished ones.
type EmotionGoals struct {
	ActiveGoal *Goal  `bson:"active_goal,omitempty" json:"active_goal,omitempty"`
	History    []Goal `bson:"history" json:"history"`
}
