package memory

import (
	"context"

	adkmemory "google.golang.org/adk/memory"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/cognirag/cognirag/internal/types"
)

// Service adapts a Store to the ADK memory.Service interface so the memory
// pipeline can be mounted in an ADK agent runtime.
type service struct {
	store *Store
}

// NewService returns an ADK memory service over store.
func NewService(store *Store) adkmemory.Service {
	return &service{store: store}
}

// AddSession persists the most recent user/assistant exchange of the
// session as one memory record. Sessions without a completed exchange are
// skipped.
func (s *service) AddSession(ctx context.Context, sess session.Session) error {
	events := sess.Events()
	if events.Len() == 0 {
		return nil
	}

	var userText, responseText string
	for i := events.Len() - 1; i >= 0; i-- {
		event := events.At(i)
		if event == nil || event.Content == nil || len(event.Content.Parts) == 0 {
			continue
		}
		text := event.Content.Parts[0].Text
		if text == "" {
			continue
		}
		switch event.Content.Role {
		case types.RoleUser:
			if responseText != "" && userText == "" {
				userText = text
			}
		default:
			if responseText == "" {
				responseText = text
			}
		}
		if userText != "" && responseText != "" {
			break
		}
	}
	if userText == "" || responseText == "" {
		return nil
	}

	return s.store.AddMemory(ctx, userText, responseText)
}

// Search retrieves relevant memories for the request query. Each memory
// expands to its user and assistant turns.
func (s *service) Search(ctx context.Context, req *adkmemory.SearchRequest) (*adkmemory.SearchResponse, error) {
	if req == nil || req.Query == "" {
		return &adkmemory.SearchResponse{Memories: nil}, nil
	}

	memories, err := s.store.RetrieveRelevant(ctx, req.Query, 0)
	if err != nil {
		return nil, err
	}
	return &adkmemory.SearchResponse{Memories: toEntries(memories)}, nil
}

func toEntries(memories []types.RetrievedMemory) []adkmemory.Entry {
	if len(memories) == 0 {
		return nil
	}
	results := make([]adkmemory.Entry, 0, 2*len(memories))
	for _, m := range memories {
		results = append(results,
			adkmemory.Entry{
				Content:   genai.NewContentFromText(m.UserText, genai.Role(types.RoleUser)),
				Author:    types.RoleUser,
				Timestamp: m.CreatedAt,
			},
			adkmemory.Entry{
				Content:   genai.NewContentFromText(m.ResponseText, genai.Role(types.RoleAssistant)),
				Author:    types.RoleAssistant,
				Timestamp: m.CreatedAt,
			},
		)
	}
	return results
}
