package models

import "time"

// PreviewFallback is shown when a session has no user-authored message yet.
const PreviewFallback = "새로운 대화"

// LegacyPreviewFallback is used for sessions synthesized from pre-session
// chat history during migration.
const LegacyPreviewFallback = "이전 대화"

// ChatSession is one persisted conversation, tagged with exactly one
// emotion. Date is the last-modified time and is rewritten on every save.
// Messages exclude the system prompt, which is re-derived from Emotion when
// the session is resumed.
type ChatSession struct {
	ID       string    `bson:"id" json:"id"`
	Date     time.Time `bson:"date" json:"date"`
	Emotion  Emotion   `bson:"emotion,omitempty" json:"emotion,omitempty"`
	Preview  string    `bson:"preview" json:"preview"`
	Messages []Message `bson:"messages" json:"messages"`
}

// FirstUserMessage returns the content of the first user-authored message,
// or the fallback preview text when none exists.
func (s ChatSession) FirstUserMessage() string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg.Content
		}
	}
	return PreviewFallback
}
