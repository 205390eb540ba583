// Package history keeps the bounded in-process conversation window.
package history

import (
	"strings"
	"sync"

	"github.com/cognirag/cognirag/internal/types"
)

// History is a rolling window of conversation turns: one system turn plus
// the most recent N user/assistant rounds. It lives for the duration of one
// session and is never persisted.
type History struct {
	mu       sync.RWMutex
	messages []types.Message
	rounds   int
}

// New returns a History bounded to rounds full exchanges.
func New(systemPrompt string, rounds int) *History {
	if rounds <= 0 {
		rounds = 3
	}
	h := &History{rounds: rounds}
	if systemPrompt != "" {
		h.messages = append(h.messages, types.Message{Role: types.RoleSystem, Content: systemPrompt})
	}
	return h
}

// AddUserMessage appends a user turn and trims the window.
func (h *History) AddUserMessage(content string) {
	h.append(types.Message{Role: types.RoleUser, Content: content})
}

// AddAIMessage appends an assistant turn and trims the window.
func (h *History) AddAIMessage(content string) {
	h.append(types.Message{Role: types.RoleAssistant, Content: content})
}

func (h *History) append(msg types.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	h.trim()
}

// trim drops the oldest non-system turns until at most 2*rounds remain,
// then removes any leading assistant turn so the window always opens on a
// user message and every surviving exchange is a whole pair. Caller must
// hold h.mu.
func (h *History) trim() {
	limit := 2 * h.rounds
	for h.countNonSystem() > limit {
		h.dropOldestNonSystem()
	}
	for {
		i := h.oldestNonSystem()
		if i < 0 || h.messages[i].Role == types.RoleUser {
			return
		}
		h.messages = append(h.messages[:i], h.messages[i+1:]...)
	}
}

func (h *History) dropOldestNonSystem() {
	if i := h.oldestNonSystem(); i >= 0 {
		h.messages = append(h.messages[:i], h.messages[i+1:]...)
	}
}

func (h *History) oldestNonSystem() int {
	for i, msg := range h.messages {
		if msg.Role != types.RoleSystem {
			return i
		}
	}
	return -1
}

func (h *History) countNonSystem() int {
	count := 0
	for _, msg := range h.messages {
		if msg.Role != types.RoleSystem {
			count++
		}
	}
	return count
}

// Messages returns a copy of the current window, system turn included.
func (h *History) Messages() []types.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// String renders the non-system turns in chronological order as
// "用户:"/"助手:" lines.
func (h *History) String() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var lines []string
	for _, msg := range h.messages {
		switch msg.Role {
		case types.RoleUser:
			lines = append(lines, "用户: "+msg.Content)
		case types.RoleAssistant:
			lines = append(lines, "助手: "+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// Clear resets the window, keeping only the system turn.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	var kept []types.Message
	for _, msg := range h.messages {
		if msg.Role == types.RoleSystem {
			kept = append(kept, msg)
		}
	}
	h.messages = kept
}
