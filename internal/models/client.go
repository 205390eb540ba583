// Package models 提供模型提供方的适配器实现。
package models

import (
	"context"
	"errors"

	"github.com/cognirag/cognirag/internal/types"
)

// ErrModelUnavailable marks completion backend failures callers may want to
// degrade on instead of aborting the turn.
var ErrModelUnavailable = errors.New("chat model unavailable")

// GenerationParams are the per-call generation knobs.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ChatModel is the text-completion boundary: role-tagged messages in, plain
// text out.
type ChatModel interface {
	Complete(ctx context.Context, messages []types.Message, params GenerationParams) (string, error)
}
