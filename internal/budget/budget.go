// Package budget keeps LLM prompts inside a context window. Token counts are
// estimated from UTF-8 byte length at 4 bytes per token; Vietnamese text is
// mostly multi-byte, so the estimate errs high, which only trims history
// earlier than strictly needed.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	bytesPerToken = 4

	// DefaultMaxContextTokens fits 8k-context models with room left for the
	// answer. Override with MAX_CONTEXT_TOKENS.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	n := len(s) / bytesPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages sums role and content estimates plus a fixed per-message
// overhead.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimHistory drops the oldest turns from history until fixed plus history
// fits within maxTokens. fixed (system prompt, query results, the current
// question) is never trimmed; if it alone exceeds the budget the returned
// history is empty and the caller decides whether to warn.
func TrimHistory(fixed, history []*schema.Message, maxTokens int) []*schema.Message {
	if len(history) == 0 {
		return history
	}

	fixedTokens := EstimateMessages(fixed)

	for len(history) > 0 {
		if fixedTokens+EstimateMessages(history) <= maxTokens {
			break
		}
		history = history[1:]
	}
	return history
}
