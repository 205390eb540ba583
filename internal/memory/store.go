package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cognirag/cognirag/internal/types"
)

// StoreConfig tunes retrieval policy.
type StoreConfig struct {
	// SimilarityThreshold is the minimum cosine similarity a candidate must
	// meet to be considered relevant.
	SimilarityThreshold float64
	// TopK is the default number of memories returned per retrieval.
	TopK int
	// MaxClues caps how many clue lines are processed per turn. Lines beyond
	// the cap are dropped silently.
	MaxClues int
	// ClueCacheSize bounds the per-clue result cache (FIFO eviction).
	ClueCacheSize int
}

// Store owns memory records: it adds new user/assistant exchanges to the
// vector index and retrieves relevant ones for a set of textual clues.
type Store struct {
	index Index
	cache *Cache
	cfg   StoreConfig

	mu        sync.Mutex
	clueCache map[string][]types.RetrievedMemory
	clueOrder []string

	now func() time.Time
}

// cacheKeyRunes is the clue prefix length used as the result cache key.
const cacheKeyRunes = 50

// NewStore returns a Store over the given index and embedding cache.
func NewStore(index Index, cache *Cache, cfg StoreConfig) *Store {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.6
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxClues <= 0 {
		cfg.MaxClues = 3
	}
	if cfg.ClueCacheSize <= 0 {
		cfg.ClueCacheSize = 64
	}
	return &Store{
		index:     index,
		cache:     cache,
		cfg:       cfg,
		clueCache: make(map[string][]types.RetrievedMemory),
		now:       time.Now,
	}
}

// AddMemory stores a completed exchange as a new memory record.
func (s *Store) AddMemory(ctx context.Context, userText, responseText string) error {
	doc := types.MemoryDocument{
		UserText:     userText,
		ResponseText: responseText,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode memory document: %w", err)
	}

	embedding, err := s.cache.GetOrComputeDocument(ctx, string(data))
	if err != nil {
		return fmt.Errorf("failed to embed memory document: %w", err)
	}
	if len(embedding) != s.cache.Dimensions() {
		return fmt.Errorf("memory embedding dimensions mismatch: got %d want %d", len(embedding), s.cache.Dimensions())
	}

	id := uuid.New().String()
	createdAt := s.now()
	metadata := map[string]string{
		"type":       types.MemoryTypeConversation,
		"created_at": createdAt.Format(time.RFC3339),
	}
	if err := s.index.Insert(ctx, id, embedding, string(data), metadata); err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}

	slog.Info("memory stored", "id", id)
	return nil
}

// RetrieveRelevant searches the index with each non-empty clue line and
// returns the topK deduplicated memories above the similarity threshold,
// most similar first. topK <= 0 uses the configured default.
func (s *Store) RetrieveRelevant(ctx context.Context, clues string, topK int) ([]types.RetrievedMemory, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	clueList := splitClues(clues)
	if len(clueList) == 0 {
		return nil, nil
	}
	if len(clueList) > s.cfg.MaxClues {
		slog.Info("too many clues, processing head only", "total", len(clueList), "max", s.cfg.MaxClues)
		clueList = clueList[:s.cfg.MaxClues]
	}

	best := make(map[string]types.RetrievedMemory)

	// Serve clues from the result cache first. Cached results are reused
	// without recomputation, re-checking only the similarity recorded at
	// cache time against the threshold.
	var pending []string
	for _, clue := range clueList {
		cached, ok := s.cachedResults(clue)
		if !ok {
			pending = append(pending, clue)
			continue
		}
		slog.Debug("clue served from cache", "clue", clue)
		for _, mem := range cached {
			if mem.Similarity < s.cfg.SimilarityThreshold {
				continue
			}
			mergeBest(best, mem)
		}
	}

	if len(pending) > 0 {
		embeddings, err := s.cache.GetOrComputeBatch(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("failed to embed clues: %w", err)
		}

		// Over-fetch to keep enough candidates after threshold filtering.
		overFetch := 3 * topK
		if overFetch > 20 {
			overFetch = 20
		}

		for i, clue := range pending {
			hits, err := s.index.Query(ctx, embeddings[i], overFetch)
			if err != nil {
				slog.Error("clue query failed", "clue", clue, "error", err.Error())
				continue
			}

			var clueResults []types.RetrievedMemory
			filtered := 0
			for _, hit := range hits {
				if hit.Similarity < s.cfg.SimilarityThreshold {
					filtered++
					continue
				}
				mem, err := memoryFromHit(hit)
				if err != nil {
					slog.Warn("skipping malformed memory document", "id", hit.ID, "error", err.Error())
					continue
				}
				clueResults = append(clueResults, mem)
				mergeBest(best, mem)
			}
			slog.Info("clue processed", "clue", clue, "hits", len(hits), "filtered", filtered, "threshold", s.cfg.SimilarityThreshold)

			if len(clueResults) > 0 {
				s.storeCachedResults(clue, clueResults)
			}
		}
	}

	memories := make([]types.RetrievedMemory, 0, len(best))
	for _, mem := range best {
		memories = append(memories, mem)
	}
	sort.Slice(memories, func(i, j int) bool {
		return memories[i].Distance < memories[j].Distance
	})
	if len(memories) > topK {
		memories = memories[:topK]
	}
	return memories, nil
}

// FormatForContext renders memories as user/assistant blocks separated by
// blank lines, ready for prompt interpolation. Empty input yields "".
func (s *Store) FormatForContext(memories []types.RetrievedMemory) string {
	if len(memories) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(memories))
	for _, mem := range memories {
		blocks = append(blocks, fmt.Sprintf("用户: %s\n助手: %s", mem.UserText, mem.ResponseText))
	}
	return strings.Join(blocks, "\n\n")
}

func (s *Store) cachedResults(clue string) ([]types.RetrievedMemory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results, ok := s.clueCache[clueCacheKey(clue)]
	return results, ok
}

func (s *Store) storeCachedResults(clue string, results []types.RetrievedMemory) {
	key := clueCacheKey(clue)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clueCache[key]; !ok {
		s.clueOrder = append(s.clueOrder, key)
	}
	s.clueCache[key] = results
	for len(s.clueCache) > s.cfg.ClueCacheSize {
		oldest := s.clueOrder[0]
		s.clueOrder = s.clueOrder[1:]
		delete(s.clueCache, oldest)
	}
}

func clueCacheKey(clue string) string {
	runes := []rune(clue)
	if len(runes) > cacheKeyRunes {
		runes = runes[:cacheKeyRunes]
	}
	return string(runes)
}

// splitClues breaks a clue block into trimmed, non-empty lines.
func splitClues(clues string) []string {
	var out []string
	for _, line := range strings.Split(clues, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// mergeBest deduplicates by record id, keeping the smaller distance when the
// same memory is surfaced by more than one clue.
func mergeBest(best map[string]types.RetrievedMemory, mem types.RetrievedMemory) {
	if existing, ok := best[mem.ID]; ok && existing.Distance <= mem.Distance {
		return
	}
	best[mem.ID] = mem
}

// memoryFromHit decodes a stored document into a retrieved memory.
func memoryFromHit(hit SearchHit) (types.RetrievedMemory, error) {
	var doc types.MemoryDocument
	if err := json.Unmarshal([]byte(hit.Document), &doc); err != nil {
		return types.RetrievedMemory{}, fmt.Errorf("failed to decode memory document: %w", err)
	}
	mem := types.RetrievedMemory{
		ID:           hit.ID,
		UserText:     doc.UserText,
		ResponseText: doc.ResponseText,
		Distance:     hit.Distance,
		Similarity:   hit.Similarity,
	}
	if raw, ok := hit.Metadata["created_at"]; ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			mem.CreatedAt = ts
		}
	}
	return mem, nil
}
