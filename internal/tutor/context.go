package tutor

import (
	"fmt"
	"strings"

	"github.com/msorokin/edupath/internal/llm"
	"github.com/msorokin/edupath/internal/model"
)

// buildSystemPrompt renders the tutoring system prompt with the learner's
// current standing embedded, so existing sessions pick up enrollment and
// progress changes on their next turn.
func buildSystemPrompt(lctx model.LearnerContext) string {
	var b strings.Builder
	b.WriteString("You are a patient, encouraging tutor on an online learning platform. ")
	b.WriteString("Explain concepts step by step, ask guiding questions instead of giving answers away, ")
	b.WriteString("and keep replies focused on the learner's question.\n")

	if len(lctx.Enrollments) > 0 {
		b.WriteString("\nThe learner is enrolled in:\n")
		for _, en := range lctx.Enrollments {
			fmt.Fprintf(&b, "- %s / %s (%s)\n", en.Subject, en.Module, en.Status)
		}
	}
	if len(lctx.Recent) > 0 {
		b.WriteString("\nRecently accessed lessons, newest first:\n")
		for _, lp := range lctx.Recent {
			fmt.Fprintf(&b, "- %s / %s / %s (%s)\n", lp.Subject, lp.Module, lp.Lesson, lp.Status)
		}
	}
	b.WriteString("\nUse this to tailor difficulty and examples. Do not recite it back to the learner.")
	return b.String()
}

// chatHistory converts a stored transcript into provider chat messages,
// keeping at most window of the newest entries when window > 0. System
// transcript entries (welcome, closing) carry the system role so the
// provider sees the same conversation shape the learner did.
func chatHistory(transcript []model.TutorMessage, window int) []llm.ChatMessage {
	if window > 0 && len(transcript) > window {
		transcript = transcript[len(transcript)-window:]
	}
	msgs := make([]llm.ChatMessage, 0, len(transcript))
	for _, m := range transcript {
		msgs = append(msgs, llm.ChatMessage{Role: roleFor(m.Sender), Content: m.Content})
	}
	return msgs
}

func roleFor(s model.Sender) string {
	switch s {
	case model.SenderUser:
		return llm.RoleUser
	case model.SenderAI:
		return llm.RoleAssistant
	default:
		return llm.RoleSystem
	}
}
