// Package types holds the shared domain types of the memory pipeline.
package types

import "time"

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a role-tagged chat message sent to the model boundary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MemoryTypeConversation marks a stored user/assistant exchange.
const MemoryTypeConversation = "memory"

// MemoryDocument is the serialized body of a stored memory. The JSON keys
// match the original data files so existing collections stay readable.
type MemoryDocument struct {
	UserText     string `json:"用户"`
	ResponseText string `json:"助手"`
}

// MemoryRecord is a stored (user input, assistant response) pair with its
// embedding. Records are immutable once written.
type MemoryRecord struct {
	ID           string    `json:"id"`
	UserText     string    `json:"user_text"`
	ResponseText string    `json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
	Embedding    []float32 `json:"-"`
}

// RetrievedMemory is a memory record surfaced by similarity search.
// Distance is the cosine distance in [0,2]; Similarity is 1 - Distance.
type RetrievedMemory struct {
	ID           string    `json:"id"`
	UserText     string    `json:"user_text"`
	ResponseText string    `json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
	Distance     float64   `json:"distance"`
	Similarity   float64   `json:"similarity"`
}

// Profile is the accumulated structured knowledge about the user.
// BasicInfo grows additively; existing keys are never overwritten.
// Events are appended, never modified or removed.
type Profile struct {
	BasicInfo map[string]string   `json:"基本信息"`
	Events    []map[string]string `json:"事件"`
}

// NewProfile returns an empty profile with initialized containers.
func NewProfile() Profile {
	return Profile{
		BasicInfo: make(map[string]string),
		Events:    make([]map[string]string, 0),
	}
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := Profile{
		BasicInfo: make(map[string]string, len(p.BasicInfo)),
		Events:    make([]map[string]string, 0, len(p.Events)),
	}
	for k, v := range p.BasicInfo {
		out.BasicInfo[k] = v
	}
	for _, event := range p.Events {
		copied := make(map[string]string, len(event))
		for k, v := range event {
			copied[k] = v
		}
		out.Events = append(out.Events, copied)
	}
	return out
}

// IsEmpty reports whether the profile carries no attributes.
func (p Profile) IsEmpty() bool {
	return len(p.BasicInfo) == 0 && len(p.Events) == 0
}
