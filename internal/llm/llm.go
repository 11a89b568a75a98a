package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msorokin/edupath/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Message roles understood by the chat API.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ChatMessage is a single role-tagged entry in a chat prompt.
type ChatMessage struct {
	Role    string
	Content string
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	return nil
}

// Chat sends a role-tagged conversation to the LLM and returns the
// assistant's reply text. Replies are markdown-formatted.
func (c *Client) Chat(ctx context.Context, system string, msgs []ChatMessage) (string, error) {
	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range msgs {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMsgs,
		Temperature: 0.7,
	})
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("chat completion: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: fmt.Errorf("LLM returned no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateQuestions asks the LLM for count multiple-choice questions on the
// given subject at the given difficulty. The response must be a JSON object
// matching the questions schema; anything else fails with *GenerationError.
// Returned questions carry no IDs; callers persist them as needed.
func (c *Client) GenerateQuestions(ctx context.Context, subject string, level model.Difficulty, count int) ([]model.Question, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: questionGenSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildQuestionGenPrompt(subject, level, count)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, &GenerationError{Err: fmt.Errorf("question generation: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return nil, &GenerationError{Err: fmt.Errorf("LLM returned no choices")}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("question generation response", "subject", subject, "raw", raw)

	questions, err := parseQuestions(raw, level)
	if err != nil {
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

const questionGenSystemPrompt = "You are an expert assessment author. " +
	"Generate high-quality multiple choice questions with exactly 4 options each. " +
	"Respond ONLY with a JSON object."

func buildQuestionGenPrompt(subject string, level model.Difficulty, count int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d multiple choice questions for the subject %q at %s level.\n\n", count, subject, level)
	sb.WriteString("Each question must have exactly 4 plausible options and exactly one correct answer.\n")
	sb.WriteString("Respond with a JSON object of this shape:\n")
	sb.WriteString(`{"questions": [{"text": "<question>", "options": ["a", "b", "c", "d"], "correct_answer": <0-based index>, "difficulty": "` + string(level) + `", "explanation": "<why the answer is correct>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}

// questionPayload is the raw per-question shape before validation.
type questionPayload struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation"`
}

// parseQuestions validates raw generator output against the questions
// schema and maps it into model questions. The schema catches shape
// mismatches; the index range check is semantic and done here.
func parseQuestions(raw string, level model.Difficulty) ([]model.Question, error) {
	if err := validateQuestionsJSON(raw); err != nil {
		return nil, err
	}

	var payload struct {
		Questions []questionPayload `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("parse questions: %w", err)}
	}
	if len(payload.Questions) == 0 {
		return nil, &GenerationError{Raw: raw, Err: fmt.Errorf("generator returned no questions")}
	}

	questions := make([]model.Question, 0, len(payload.Questions))
	for i, p := range payload.Questions {
		if p.CorrectAnswer < 0 || p.CorrectAnswer >= len(p.Options) {
			return nil, &GenerationError{
				Raw: raw,
				Err: fmt.Errorf("question %d: correct_answer %d out of range for %d options", i, p.CorrectAnswer, len(p.Options)),
			}
		}
		difficulty := model.Difficulty(p.Difficulty)
		switch difficulty {
		case model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced:
		default:
			difficulty = level
		}
		questions = append(questions, model.Question{
			Text:          p.Text,
			Options:       p.Options,
			CorrectAnswer: p.CorrectAnswer,
			Difficulty:    difficulty,
			Explanation:   p.Explanation,
		})
	}
	return questions, nil
}
