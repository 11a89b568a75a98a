package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/msorokin/edupath/internal/model"
)

func TestBuildQuestionGenPrompt(t *testing.T) {
	prompt := buildQuestionGenPrompt("Mathematics", model.DifficultyBeginner, 5)
	if !strings.Contains(prompt, "Mathematics") {
		t.Error("prompt should contain the subject")
	}
	if !strings.Contains(prompt, "beginner") {
		t.Error("prompt should contain the difficulty level")
	}
	if !strings.Contains(prompt, "5 multiple choice questions") {
		t.Error("prompt should contain the question count")
	}
	if !strings.Contains(prompt, `"correct_answer"`) {
		t.Error("prompt should describe the expected JSON shape")
	}
}

func TestParseQuestions(t *testing.T) {
	valid := `{"questions": [
		{"text": "What is 2+2?", "options": ["3", "4", "5", "6"], "correct_answer": 1, "difficulty": "beginner", "explanation": "basic addition"},
		{"text": "What is 3*3?", "options": ["6", "9"], "correct_answer": 1}
	]}`

	questions, err := parseQuestions(valid, model.DifficultyBeginner)
	if err != nil {
		t.Fatalf("parseQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].CorrectAnswer != 1 {
		t.Errorf("expected correct answer 1, got %d", questions[0].CorrectAnswer)
	}
	if questions[0].Difficulty != model.DifficultyBeginner {
		t.Errorf("expected beginner, got %q", questions[0].Difficulty)
	}
	// Missing difficulty falls back to the requested level.
	if questions[1].Difficulty != model.DifficultyBeginner {
		t.Errorf("expected requested level fallback, got %q", questions[1].Difficulty)
	}
}

func TestParseQuestionsRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON", "here are your questions!"},
		{"wrong root", `{"items": []}`},
		{"empty list", `{"questions": []}`},
		{"missing options", `{"questions": [{"text": "Q", "correct_answer": 0}]}`},
		{"single option", `{"questions": [{"text": "Q", "options": ["a"], "correct_answer": 0}]}`},
		{"index out of range", `{"questions": [{"text": "Q", "options": ["a", "b"], "correct_answer": 2}]}`},
		{"negative index", `{"questions": [{"text": "Q", "options": ["a", "b"], "correct_answer": -1}]}`},
		{"empty text", `{"questions": [{"text": "", "options": ["a", "b"], "correct_answer": 0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseQuestions(tt.raw, model.DifficultyBeginner)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Errorf("expected *GenerationError, got %T", err)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/v1", "test-key", "test-model")
}

func chatCompletionResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
}

func TestChat(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionResponse("Sure, let's review fractions."))
	}

	c := newTestClient(t, handler)
	reply, err := c.Chat(context.Background(), "You are a tutor.", []ChatMessage{
		{Role: RoleUser, Content: "Help me with fractions"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Sure, let's review fractions." {
		t.Errorf("unexpected reply: %q", reply)
	}
}

func TestChatProviderFailure(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}

	c := newTestClient(t, handler)
	_, err := c.Chat(context.Background(), "", []ChatMessage{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("expected *GenerationError, got %T", err)
	}
}

func TestGenerateQuestions(t *testing.T) {
	body := `{"questions": [{"text": "What is 2+2?", "options": ["3", "4", "5", "6"], "correct_answer": 1, "difficulty": "beginner", "explanation": "addition"}]}`
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionResponse(body))
	}

	c := newTestClient(t, handler)
	questions, err := c.GenerateQuestions(context.Background(), "Mathematics", model.DifficultyBeginner, 5)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if questions[0].Text != "What is 2+2?" {
		t.Errorf("unexpected question text: %q", questions[0].Text)
	}
}

func TestGenerateQuestionsUnparseableOutput(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionResponse("I cannot produce JSON today."))
	}

	c := newTestClient(t, handler)
	_, err := c.GenerateQuestions(context.Background(), "Mathematics", model.DifficultyBeginner, 5)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if genErr.Raw == "" {
		t.Error("expected raw response to be preserved")
	}
}
