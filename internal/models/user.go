package models

// UserRecordSchemaVersion is the current shape of the stored document.
// Version-less documents predate per-session storage and are migrated on
// load (see services.RecordService).
const UserRecordSchemaVersion = 2

// Profile holds display preferences for a user.
type Profile struct {
	Nickname string `bson:"nickname" json:"nickname"`
	Bio      string `bson:"bio" json:"bio"`
	Theme    string `bson:"theme" json:"theme"`
}

// UserRecord is the root persisted document for one username. It is the
// only shared mutable resource in the system and is saved whole,
// last-write-wins; concurrent writers for the same username clobber each
// other.
type UserRecord struct {
	Username      string        `bson:"_id" json:"username"`
	Name          string        `bson:"name" json:"name"`
	Email         string        `bson:"email,omitempty" json:"email,omitempty"`
	Profile       Profile       `bson:"profile" json:"profile"`
	ChatSessions  []ChatSession `bson:"chat_sessions" json:"chat_sessions"`
	EmotionGoals  EmotionGoals  `bson:"emotion_goals" json:"emotion_goals"`
	SchemaVersion int           `bson:"schema_version" json:"schema_version"`

	// Deprecated legacy fields, retained only so pre-migration documents
	// round-trip. Cleared by migration.
	LegacyChatHistory []Message `bson:"chat_history,omitempty" json:"-"`
	LegacyEmotions    []Emotion `bson:"emotions,omitempty" json:"-"`
}

// SessionByID returns a pointer into ChatSessions for the given id, or nil.
func (u *UserRecord) SessionByID(id string) *ChatSession {
	for i := range u.ChatSessions {
		if u.ChatSessions[i].ID == id {
			return &u.ChatSessions[i]
		}
	}
	return nil
}
