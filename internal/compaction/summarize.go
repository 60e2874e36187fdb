package compaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/conductor/pkg/models"
)

// DefaultMaxTranscriptTokens triggers summarization when the estimated
// transcript size crosses it.
const DefaultMaxTranscriptTokens = 100000

// DefaultKeepRecent is the number of newest messages preserved verbatim
// through a summarization pass.
const DefaultKeepRecent = 8

const summaryPrompt = `Summarize the conversation so far for an agent that will continue the work. Capture: the user's goal, decisions made, files created or modified (with paths), todo state, and any unresolved problems. Be specific about paths and names. Output only the summary.`

// CompleteFunc produces a completion for a system prompt and a transcript.
// It is the narrow surface the summarizer needs from a model provider.
type CompleteFunc func(ctx context.Context, system string, messages []*models.Message) (string, error)

// Summarizer replaces the older portion of a transcript with a single
// model-generated summary message once the transcript grows past a token
// threshold.
type Summarizer struct {
	complete   CompleteFunc
	maxTokens  int
	keepRecent int
}

// NewSummarizer creates a summarizer using complete for the secondary model
// call. Non-positive limits fall back to the package defaults.
func NewSummarizer(complete CompleteFunc, maxTokens, keepRecent int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTranscriptTokens
	}
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	return &Summarizer{complete: complete, maxTokens: maxTokens, keepRecent: keepRecent}
}

// ShouldCompact reports whether the transcript exceeds the summarization
// threshold.
func (s *Summarizer) ShouldCompact(messages []*models.Message) bool {
	if s == nil || s.complete == nil {
		return false
	}
	return EstimateTranscriptTokens(messages) > s.maxTokens
}

// Compaction records the outcome of one summarization pass.
type Compaction struct {
	Dropped      int
	TokensBefore int
	TokensAfter  int
}

// Compact summarizes everything except the newest keepRecent messages and
// returns the shortened transcript. The summary rides in a user-role message
// so any provider accepts it. Transcripts at or under keepRecent messages
// come back unchanged.
func (s *Summarizer) Compact(ctx context.Context, messages []*models.Message) ([]*models.Message, *Compaction, error) {
	if len(messages) <= s.keepRecent {
		return messages, nil, nil
	}

	cut := len(messages) - s.keepRecent
	// Never split a tool call from its result: a transcript that opens with
	// tool results confuses providers, so extend the kept window back to the
	// assistant message that issued them.
	for cut > 0 && len(messages[cut].ToolResults) > 0 {
		cut--
	}
	if cut == 0 {
		return messages, nil, nil
	}

	older := messages[:cut]
	summary, err := s.complete(ctx, summaryPrompt, older)
	if err != nil {
		return nil, nil, fmt.Errorf("summarize transcript: %w", err)
	}

	head := &models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   "Summary of the conversation so far:\n\n" + strings.TrimSpace(summary),
		CreatedAt: time.Now(),
	}

	compacted := make([]*models.Message, 0, 1+s.keepRecent)
	compacted = append(compacted, head)
	compacted = append(compacted, models.CloneMessages(messages[cut:])...)

	info := &Compaction{
		Dropped:      cut,
		TokensBefore: EstimateTranscriptTokens(messages),
		TokensAfter:  EstimateTranscriptTokens(compacted),
	}
	return compacted, info, nil
}
