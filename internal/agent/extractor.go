// Package agent sequences the per-turn pipeline: profile extraction, clue
// extraction, memory retrieval, response generation, and persistence.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cognirag/cognirag/internal/models"
	"github.com/cognirag/cognirag/internal/profile"
	"github.com/cognirag/cognirag/internal/prompt"
	"github.com/cognirag/cognirag/internal/types"
)

// ProfileExtractor derives structured profile attributes from user input
// through the model and merges them additively into the stored profile.
type ProfileExtractor struct {
	model    models.ChatModel
	profiles *profile.Manager
	params   models.GenerationParams
}

// NewProfileExtractor returns a ProfileExtractor.
func NewProfileExtractor(model models.ChatModel, profiles *profile.Manager, params models.GenerationParams) *ProfileExtractor {
	return &ProfileExtractor{model: model, profiles: profiles, params: params}
}

// ExtractAndMerge analyzes userInput and merges any extracted attributes
// into current. The profile file is rewritten only when the merge added
// something new. Unparseable model output leaves the profile untouched.
func (e *ProfileExtractor) ExtractAndMerge(ctx context.Context, userInput string, current types.Profile) (types.Profile, error) {
	messages, err := prompt.ProfileAnalysis(userInput)
	if err != nil {
		return current, err
	}
	raw, err := e.model.Complete(ctx, messages, e.params)
	if err != nil {
		return current, fmt.Errorf("failed to analyze user info: %w", err)
	}
	slog.Debug("profile analysis result", "raw", raw)

	delta := profile.ParseModelOutput(raw)
	if delta == nil {
		slog.Warn("no profile attributes extracted from model output")
		return current, nil
	}

	merged, changed := profile.Merge(current, delta)
	if changed {
		if err := e.profiles.Save(merged); err != nil {
			slog.Warn("failed to persist profile", "error", err.Error())
		}
	}
	return merged, nil
}

// ClueExtractor turns user input plus the accumulated profile into a small
// set of newline-separated retrieval cues.
type ClueExtractor struct {
	model  models.ChatModel
	params models.GenerationParams
}

// NewClueExtractor returns a ClueExtractor.
func NewClueExtractor(model models.ChatModel, params models.GenerationParams) *ClueExtractor {
	return &ClueExtractor{model: model, params: params}
}

// Extract returns clue lines for userInput. When the model yields nothing
// usable, the original input is returned so retrieval still has a cue.
func (e *ClueExtractor) Extract(ctx context.Context, userInput string, p types.Profile) (string, error) {
	profileJSON, err := json.Marshal(p)
	if err != nil {
		return userInput, fmt.Errorf("failed to encode profile: %w", err)
	}
	messages, err := prompt.ClueExtraction(string(profileJSON), userInput)
	if err != nil {
		return userInput, err
	}
	raw, err := e.model.Complete(ctx, messages, e.params)
	if err != nil {
		return userInput, fmt.Errorf("failed to extract clues: %w", err)
	}

	clues := strings.TrimSpace(raw)
	if clues == "" {
		return userInput, nil
	}
	slog.Debug("clues extracted", "clues", clues)
	return clues, nil
}
