package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognirag/cognirag/internal/history"
	"github.com/cognirag/cognirag/internal/memory"
	"github.com/cognirag/cognirag/internal/models"
	"github.com/cognirag/cognirag/internal/profile"
	"github.com/cognirag/cognirag/internal/prompt"
	"github.com/cognirag/cognirag/internal/types"
)

// Orchestrator runs one user turn end to end. Every stage before response
// generation degrades to empty or default input on failure; only a failed
// generation surfaces to the caller. The user therefore always receives
// response text unless the model itself is down.
type Orchestrator struct {
	model            models.ChatModel
	store            *memory.Store
	history          *history.History
	profiles         *profile.Manager
	profileExtractor *ProfileExtractor
	clueExtractor    *ClueExtractor
	genParams        models.GenerationParams
	stageTimeout     time.Duration
}

// Options configures the orchestrator.
type Options struct {
	// Generation parameters for all model calls.
	Params models.GenerationParams
	// StageTimeout bounds each external call. A hung backend then counts as
	// a stage failure instead of blocking the turn forever. Zero disables
	// the per-stage deadline.
	StageTimeout time.Duration
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(model models.ChatModel, store *memory.Store, hist *history.History, profiles *profile.Manager, opts Options) *Orchestrator {
	return &Orchestrator{
		model:            model,
		store:            store,
		history:          hist,
		profiles:         profiles,
		profileExtractor: NewProfileExtractor(model, profiles, opts.Params),
		clueExtractor:    NewClueExtractor(model, opts.Params),
		genParams:        opts.Params,
		stageTimeout:     opts.StageTimeout,
	}
}

// ProcessTurn handles one user input: snapshot context, extract profile
// attributes, extract clues, retrieve memories, generate the reply, then
// persist the exchange into history and the memory store.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userInput string) (string, error) {
	started := time.Now()

	// Context excludes the current question; the question reaches the model
	// through the generation template instead.
	conversationContext := o.history.String()
	o.history.AddUserMessage(userInput)

	userProfile := o.profiles.Load()
	updated, err := o.runProfileStage(ctx, userInput, userProfile)
	if err != nil {
		slog.Warn("profile stage degraded", "error", err.Error())
	} else {
		userProfile = updated
	}

	clues := o.runClueStage(ctx, userInput, userProfile)

	memoriesText := o.runRetrievalStage(ctx, clues)

	messages, err := prompt.ResponseGeneration(conversationContext, memoriesText, clues, userInput)
	if err != nil {
		return "", err
	}
	genCtx, cancel := o.stageContext(ctx)
	response, err := o.model.Complete(genCtx, messages, o.genParams)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	o.history.AddAIMessage(response)
	persistCtx, cancel := o.stageContext(ctx)
	if err := o.store.AddMemory(persistCtx, userInput, response); err != nil {
		slog.Error("failed to store memory", "error", err.Error())
	}
	cancel()

	slog.Info("turn processed", "duration", time.Since(started).String())
	return response, nil
}

func (o *Orchestrator) runProfileStage(ctx context.Context, userInput string, current types.Profile) (types.Profile, error) {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.profileExtractor.ExtractAndMerge(stageCtx, userInput, current)
}

func (o *Orchestrator) runClueStage(ctx context.Context, userInput string, userProfile types.Profile) string {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	clues, err := o.clueExtractor.Extract(stageCtx, userInput, userProfile)
	if err != nil {
		slog.Warn("clue stage degraded to raw input", "error", err.Error())
		return userInput
	}
	return clues
}

func (o *Orchestrator) runRetrievalStage(ctx context.Context, clues string) string {
	stageCtx, cancel := o.stageContext(ctx)
	defer cancel()
	memories, err := o.store.RetrieveRelevant(stageCtx, clues, 0)
	if err != nil {
		slog.Warn("memory retrieval degraded to empty set", "error", err.Error())
		return ""
	}
	return o.store.FormatForContext(memories)
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.stageTimeout)
}
