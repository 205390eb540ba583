package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognirag/cognirag/internal/history"
	"github.com/cognirag/cognirag/internal/memory"
	"github.com/cognirag/cognirag/internal/models"
	"github.com/cognirag/cognirag/internal/profile"
	"github.com/cognirag/cognirag/internal/types"
)

// stubModel replays scripted results in call order: profile analysis first,
// then clue extraction, then response generation.
type stubModel struct {
	script []stubResult
	calls  [][]types.Message
}

type stubResult struct {
	text string
	err  error
}

func (m *stubModel) Complete(_ context.Context, messages []types.Message, _ models.GenerationParams) (string, error) {
	i := len(m.calls)
	m.calls = append(m.calls, messages)
	if i >= len(m.script) {
		return "", errors.New("unexpected model call")
	}
	return m.script[i].text, m.script[i].err
}

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (stubEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 2}, nil
}

func (s stubEmbedder) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, _ := s.EmbedQuery(ctx, text)
		out = append(out, vec)
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int { return 2 }

type stubIndex struct {
	hits     []memory.SearchHit
	inserted int
	queries  int
}

func (s *stubIndex) Insert(context.Context, string, []float32, string, map[string]string) error {
	s.inserted++
	return nil
}

func (s *stubIndex) Query(context.Context, []float32, int) ([]memory.SearchHit, error) {
	s.queries++
	return s.hits, nil
}

func newTestOrchestrator(t *testing.T, model models.ChatModel, index memory.Index) (*Orchestrator, *history.History, *profile.Manager) {
	t.Helper()
	cache := memory.NewCache(stubEmbedder{}, 16, 4)
	store := memory.NewStore(index, cache, memory.StoreConfig{})
	hist := history.New("系统提示", 3)
	profiles := profile.NewManager(filepath.Join(t.TempDir(), "user_profile.json"))
	return NewOrchestrator(model, store, hist, profiles, Options{
		Params: models.GenerationParams{MaxTokens: 96, Temperature: 0.5, TopP: 0.9},
	}), hist, profiles
}

func memoryHit(id, userText, responseText string, distance float64) memory.SearchHit {
	doc, _ := json.Marshal(types.MemoryDocument{UserText: userText, ResponseText: responseText})
	return memory.SearchHit{ID: id, Document: string(doc), Distance: distance, Similarity: 1 - distance}
}

func TestProcessTurnHappyPath(t *testing.T) {
	model := &stubModel{script: []stubResult{
		{text: `{"基本信息": {"姓名": "张三"}, "事件": {}}`},
		{text: "用户养猫\n用户叫张三"},
		{text: "张三你好，猫咪今天乖吗？"},
	}}
	index := &stubIndex{hits: []memory.SearchHit{memoryHit("m1", "我养了一只猫", "猫咪叫什么名字", 0.2)}}
	orchestrator, hist, profiles := newTestOrchestrator(t, model, index)

	response, err := orchestrator.ProcessTurn(context.Background(), "我是张三，我养了一只猫")
	if err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}
	if response != "张三你好，猫咪今天乖吗？" {
		t.Fatalf("unexpected response: %q", response)
	}

	if len(model.calls) != 3 {
		t.Fatalf("expected 3 model calls, got %d", len(model.calls))
	}
	generation := model.calls[2][1].Content
	if !strings.Contains(generation, "我养了一只猫") {
		t.Fatalf("expected retrieved memory in the generation prompt, got:\n%s", generation)
	}
	if !strings.Contains(generation, "用户养猫") {
		t.Fatalf("expected clues in the generation prompt, got:\n%s", generation)
	}

	messages := hist.Messages()
	last := messages[len(messages)-1]
	if last.Role != types.RoleAssistant || last.Content != response {
		t.Fatalf("expected response recorded in history, got %+v", last)
	}

	if index.inserted != 1 {
		t.Fatalf("expected the exchange to be stored as memory, got %d inserts", index.inserted)
	}
	if profiles.Load().BasicInfo["姓名"] != "张三" {
		t.Fatal("expected extracted profile attribute to be persisted")
	}
}

func TestProcessTurnDegradesOnStageFailures(t *testing.T) {
	model := &stubModel{script: []stubResult{
		{err: errors.New("profile backend down")},
		{err: errors.New("clue backend down")},
		{text: "没关系，我们慢慢聊。"},
	}}
	orchestrator, _, _ := newTestOrchestrator(t, model, &stubIndex{})

	response, err := orchestrator.ProcessTurn(context.Background(), "最近睡得不太好")
	if err != nil {
		t.Fatalf("expected degraded turn to succeed, got error: %v", err)
	}
	if response != "没关系，我们慢慢聊。" {
		t.Fatalf("unexpected response: %q", response)
	}

	// With clue extraction down, retrieval falls back to the raw input.
	generation := model.calls[2][1].Content
	if !strings.Contains(generation, "最近睡得不太好") {
		t.Fatalf("expected raw input as clue fallback, got:\n%s", generation)
	}
}

func TestProcessTurnFailsWhenGenerationFails(t *testing.T) {
	model := &stubModel{script: []stubResult{
		{text: `{"基本信息": {}, "事件": {}}`},
		{text: "一条线索"},
		{err: errors.New("model unavailable")},
	}}
	index := &stubIndex{}
	orchestrator, hist, _ := newTestOrchestrator(t, model, index)

	if _, err := orchestrator.ProcessTurn(context.Background(), "你好"); err == nil {
		t.Fatal("expected error when response generation fails")
	}

	messages := hist.Messages()
	last := messages[len(messages)-1]
	if last.Role != types.RoleUser {
		t.Fatalf("expected no assistant message after failed generation, got %+v", last)
	}
	if index.inserted != 0 {
		t.Fatalf("expected no memory stored after failed generation, got %d", index.inserted)
	}
}

func TestProcessTurnExcludesCurrentQuestionFromContext(t *testing.T) {
	model := &stubModel{script: []stubResult{
		{text: `{"基本信息": {}, "事件": {}}`},
		{text: "线索"},
		{text: "第一轮回复"},
		{text: `{"基本信息": {}, "事件": {}}`},
		{text: "线索"},
		{text: "第二轮回复"},
	}}
	orchestrator, _, _ := newTestOrchestrator(t, model, &stubIndex{})

	if _, err := orchestrator.ProcessTurn(context.Background(), "第一个问题"); err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}

	firstGeneration := model.calls[2][1].Content
	if strings.Contains(firstGeneration, "用户: 第一个问题") {
		t.Fatalf("current question must not appear in the context block:\n%s", firstGeneration)
	}

	if _, err := orchestrator.ProcessTurn(context.Background(), "第二个问题"); err != nil {
		t.Fatalf("ProcessTurn returned error: %v", err)
	}

	secondGeneration := model.calls[5][1].Content
	if !strings.Contains(secondGeneration, "用户: 第一个问题") || !strings.Contains(secondGeneration, "助手: 第一轮回复") {
		t.Fatalf("previous round missing from the context block:\n%s", secondGeneration)
	}
	if strings.Contains(secondGeneration, "用户: 第二个问题") {
		t.Fatalf("current question must not appear in the context block:\n%s", secondGeneration)
	}
}
