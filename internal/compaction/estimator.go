// Package compaction keeps transcripts inside a token budget: oversized
// tool results are spilled to the workspace and replaced with pointers, and
// oversized transcripts are folded into a synthetic summary message.
package compaction

import "github.com/haasonsaas/conductor/pkg/models"

// EstimateTokens approximates token usage for a piece of text. The
// heuristic (one token per four characters, rounded up) is deliberately
// simple: it is stable across calls and monotonic in input length, which is
// all the eviction and summarization thresholds require.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessageTokens approximates token usage for one message,
// including tool call arguments and tool result payloads.
func EstimateMessageTokens(msg *models.Message) int {
	if msg == nil {
		return 0
	}
	total := EstimateTokens(msg.Content)
	for _, tc := range msg.ToolCalls {
		total += EstimateTokens(tc.Name) + EstimateTokens(string(tc.Input))
	}
	for _, tr := range msg.ToolResults {
		total += EstimateTokens(tr.Content)
	}
	return total
}

// EstimateTranscriptTokens approximates token usage for a whole transcript.
func EstimateTranscriptTokens(msgs []*models.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessageTokens(m)
	}
	return total
}
