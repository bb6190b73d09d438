package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation. Insertion order is
// conversation order.
type Message struct {
	Role    Role   `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}
