package model

import "strings"

const maxInferredTitleRunes = 48

// InferTitle derives a title from the first non-empty user message. It returns "" when the
// transcript has no user text.
func InferTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		t := strings.Join(strings.Fields(msg.Content), " ")
		if t == "" {
			continue
		}
		runes := []rune(t)
		if len(runes) > maxInferredTitleRunes {
			return string(runes[:maxInferredTitleRunes]) + "..."
		}
		return t
	}
	return ""
}
