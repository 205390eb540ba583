package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/cognirag/cognirag/internal/types"
)

// ProfileAnalysis builds the messages for the profile-extraction stage.
func ProfileAnalysis(userInput string) ([]types.Message, error) {
	return stageMessages(profileAnalyzerSystem, profileAnalyzerUserTemplate, struct {
		UserInput string
	}{UserInput: userInput})
}

// ClueExtraction builds the messages for the clue-extraction stage.
// userProfile is the JSON-rendered accumulated profile.
func ClueExtraction(userProfile, userInput string) ([]types.Message, error) {
	return stageMessages(clueExtractorSystem, clueExtractorUserTemplate, struct {
		UserProfile string
		UserInput   string
	}{UserProfile: userProfile, UserInput: userInput})
}

// ResponseGeneration builds the final generation messages from the
// conversation context, retrieved memories, clues, and current input.
func ResponseGeneration(context, memories, clues, userInput string) ([]types.Message, error) {
	return stageMessages(responseGeneratorSystem, responseGeneratorUserTemplate, struct {
		Context   string
		Memories  string
		Clues     string
		UserInput string
	}{Context: context, Memories: memories, Clues: clues, UserInput: userInput})
}

func stageMessages(system string, tmpl *template.Template, data any) ([]types.Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}
	return []types.Message{
		{Role: types.RoleSystem, Content: system},
		{Role: types.RoleUser, Content: buf.String()},
	}, nil
}
