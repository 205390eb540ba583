// 命令 chat 启动 CogniRAG 终端对话：逐轮抽取用户画像、提取检索线索、
// 召回相关记忆并生成回复。
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cognirag/cognirag/internal/agent"
	"github.com/cognirag/cognirag/internal/config"
	"github.com/cognirag/cognirag/internal/history"
	"github.com/cognirag/cognirag/internal/memory"
	"github.com/cognirag/cognirag/internal/models"
	"github.com/cognirag/cognirag/internal/profile"
	"github.com/cognirag/cognirag/internal/prompt"
	"github.com/cognirag/cognirag/internal/storage"
)

var quitWords = map[string]struct{}{
	"退出":   {},
	"exit": {},
	"quit": {},
	"bye":  {},
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}
	cache := memory.NewCache(embedder, cfg.EmbeddingCacheSize, cfg.EmbeddingBatchSize)

	index, cleanup, err := newIndex(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open vector index: %v", err)
	}
	defer cleanup()

	store := memory.NewStore(index, cache, memory.StoreConfig{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TopK:                cfg.TopK,
		MaxClues:            cfg.MaxClues,
	})

	model, err := models.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	hist := history.New(prompt.SystemMessage, cfg.HistoryRounds)
	profiles := profile.NewManager(cfg.ProfilePath)

	orchestrator := agent.NewOrchestrator(model, store, hist, profiles, agent.Options{
		Params: models.GenerationParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		},
		StageTimeout: cfg.StageTimeout,
	})

	slog.Info("chat started", "chat_model", cfg.ChatModel, "index_backend", cfg.IndexBackend)
	fmt.Println("你好，我在。想聊点什么？（输入 退出 结束对话）")

	runLoop(ctx, orchestrator)

	fmt.Println("再见，记得照顾好自己。")
}

func runLoop(ctx context.Context, orchestrator *agent.Orchestrator) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if _, quit := quitWords[strings.ToLower(input)]; quit {
			return
		}

		response, err := orchestrator.ProcessTurn(ctx, input)
		if err != nil {
			slog.Error("failed to process turn", "error", err.Error())
			fmt.Println("抱歉，我这边出了点问题，稍后再试一次吧。")
			continue
		}
		fmt.Println(response)
	}
}

func newIndex(ctx context.Context, cfg config.Config) (memory.Index, func(), error) {
	switch cfg.IndexBackend {
	case config.IndexBackendPostgres:
		index, err := storage.NewPgIndex(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return index, index.Close, nil
	default:
		index, err := memory.NewChromemIndex(os.Getenv("CHROMEM_PATH"))
		if err != nil {
			return nil, nil, err
		}
		return index, func() {}, nil
	}
}
