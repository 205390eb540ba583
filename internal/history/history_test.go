package history

import (
	"fmt"
	"testing"

	"github.com/cognirag/cognirag/internal/types"
)

func TestHistoryKeepsSystemAndRecentRounds(t *testing.T) {
	h := New("系统提示", 3)

	for i := 1; i <= 10; i++ {
		h.AddUserMessage(fmt.Sprintf("问题%d", i))
		h.AddAIMessage(fmt.Sprintf("回答%d", i))
	}

	messages := h.Messages()
	if len(messages) != 7 {
		t.Fatalf("expected system + 6 messages, got %d", len(messages))
	}
	if messages[0].Role != types.RoleSystem || messages[0].Content != "系统提示" {
		t.Fatalf("expected system message first, got %+v", messages[0])
	}
	if messages[1].Content != "问题8" {
		t.Fatalf("expected oldest surviving turn to be 问题8, got %q", messages[1].Content)
	}
	if messages[6].Content != "回答10" {
		t.Fatalf("expected newest turn last, got %q", messages[6].Content)
	}
}

func TestHistoryTrimsWholePairs(t *testing.T) {
	h := New("", 2)

	h.AddUserMessage("一")
	h.AddAIMessage("二")
	h.AddUserMessage("三")
	h.AddAIMessage("四")
	h.AddUserMessage("五")

	messages := h.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected the oldest pair dropped whole, got %d messages", len(messages))
	}
	if messages[0].Content != "三" || messages[0].Role != types.RoleUser {
		t.Fatalf("expected window to open on 三, got %+v", messages[0])
	}
	if messages[2].Content != "五" || messages[2].Role != types.RoleUser {
		t.Fatalf("unexpected newest message: %+v", messages[2])
	}
}

func TestHistoryNeverOpensOnAssistantTurn(t *testing.T) {
	h := New("系统提示", 1)

	h.AddUserMessage("第一问")
	h.AddAIMessage("第一答")
	// Two user turns in a row, as after a failed generation.
	h.AddUserMessage("第二问")
	h.AddUserMessage("第三问")

	messages := h.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected system + 2 messages, got %d", len(messages))
	}
	if messages[1].Role != types.RoleUser || messages[1].Content != "第二问" {
		t.Fatalf("window must open on a user turn, got %+v", messages[1])
	}
	if messages[2].Content != "第三问" {
		t.Fatalf("unexpected newest message: %+v", messages[2])
	}
}

func TestHistoryString(t *testing.T) {
	h := New("系统提示", 3)
	h.AddUserMessage("最近压力很大")
	h.AddAIMessage("愿意跟我说说吗")

	want := "用户: 最近压力很大\n助手: 愿意跟我说说吗"
	if got := h.String(); got != want {
		t.Fatalf("unexpected transcript:\n%q\nwant:\n%q", got, want)
	}
}

func TestHistoryClearKeepsSystem(t *testing.T) {
	h := New("系统提示", 3)
	h.AddUserMessage("你好")
	h.AddAIMessage("你好呀")

	h.Clear()

	messages := h.Messages()
	if len(messages) != 1 || messages[0].Role != types.RoleSystem {
		t.Fatalf("expected only the system message after Clear, got %+v", messages)
	}
	if h.String() != "" {
		t.Fatalf("expected empty transcript after Clear, got %q", h.String())
	}
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	h := New("系统提示", 3)
	h.AddUserMessage("你好")

	messages := h.Messages()
	messages[0].Content = "篡改"

	if h.Messages()[0].Content != "系统提示" {
		t.Fatal("mutating the returned slice must not affect the history")
	}
}
