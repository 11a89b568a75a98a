package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msorokin/edupath/internal/i18n"
	"github.com/msorokin/edupath/internal/llm"
	"github.com/msorokin/edupath/internal/model"
)

var (
	// ErrSessionNotFound indicates the session does not exist or belongs
	// to a different learner.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCompleted indicates an operation on an ended session.
	ErrSessionCompleted = errors.New("session already completed")
)

// SessionStore is the persistence surface the engine needs for sessions
// and their transcripts.
type SessionStore interface {
	CreateSession(learnerID, title string) (int64, error)
	GetSession(id int64) (*model.TutorSession, error)
	ListSessions(learnerID string) ([]model.TutorSession, error)
	CompleteSession(id int64) error
	TouchSession(id int64) error
	AppendMessage(sessionID int64, sender model.Sender, content string) (model.TutorMessage, error)
	MessagesBySession(sessionID int64) ([]model.TutorMessage, error)
}

// ProfileReader provides the learner standing embedded in every prompt.
type ProfileReader interface {
	Enrollments(learnerID string) ([]model.Enrollment, error)
	RecentProgress(learnerID string, limit int) ([]model.LessonProgress, error)
}

// Generator is the external text-generation capability.
type Generator interface {
	Chat(ctx context.Context, system string, msgs []llm.ChatMessage) (string, error)
}

// Config holds tutoring parameters.
type Config struct {
	// HistoryWindow caps how many transcript messages are embedded in a
	// prompt, newest kept. 0 means the full transcript.
	HistoryWindow int
	// RecentLessons caps the lesson-progress rows in the context snapshot.
	RecentLessons int
}

// Engine maintains durable tutor conversations, assembling a fresh
// learner-context snapshot for every turn.
type Engine struct {
	store   SessionStore
	profile ProfileReader
	gen     Generator
	cfg     Config
}

// NewEngine creates a tutoring engine.
func NewEngine(store SessionStore, profile ProfileReader, gen Generator, cfg Config) *Engine {
	if cfg.RecentLessons <= 0 {
		cfg.RecentLessons = 5
	}
	return &Engine{store: store, profile: profile, gen: gen, cfg: cfg}
}

// StartSession creates an in-progress session seeded with a system welcome
// message. When question is non-empty a first tutoring turn runs
// immediately; its reply is returned alongside the session. The session is
// created even if that first turn fails, so the caller gets both the
// session and the turn error.
func (e *Engine) StartSession(ctx context.Context, learnerID, title, question string) (*model.TutorSession, string, error) {
	id, err := e.store.CreateSession(learnerID, title)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	welcome := i18n.T(ctx, "tutor.welcome")
	if title != "" {
		welcome = i18n.Td(ctx, "tutor.welcome_titled", map[string]any{"Title": title})
	}
	if _, err := e.store.AppendMessage(id, model.SenderSystem, welcome); err != nil {
		return nil, "", fmt.Errorf("seed welcome message: %w", err)
	}

	sess, err := e.store.GetSession(id)
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}

	var reply string
	if question != "" {
		reply, err = e.PostMessage(ctx, id, learnerID, question)
		if err != nil {
			return sess, "", err
		}
	}
	return sess, reply, nil
}

// PostMessage runs one tutoring turn: the learner's text is persisted
// first, a context snapshot and the prior transcript are assembled into a
// prompt, and the generated reply is appended and returned. A generation
// failure fails only this turn; the learner message stays persisted and no
// partial AI message is written.
func (e *Engine) PostMessage(ctx context.Context, sessionID int64, learnerID, text string) (string, error) {
	sess, err := e.ownedSession(sessionID, learnerID)
	if err != nil {
		return "", err
	}
	if sess.Status == model.StatusCompleted {
		return "", fmt.Errorf("session %d: %w", sessionID, ErrSessionCompleted)
	}

	if _, err := e.store.AppendMessage(sessionID, model.SenderUser, text); err != nil {
		return "", fmt.Errorf("append learner message: %w", err)
	}

	transcript, err := e.store.MessagesBySession(sessionID)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}

	lctx, err := e.learnerContext(learnerID)
	if err != nil {
		return "", fmt.Errorf("build learner context: %w", err)
	}

	system := buildSystemPrompt(lctx)
	history := chatHistory(transcript, e.cfg.HistoryWindow)

	reply, err := e.gen.Chat(ctx, system, history)
	if err != nil {
		slog.Error("tutor reply generation failed", "session", sessionID, "error", err)
		return "", err
	}

	if _, err := e.store.AppendMessage(sessionID, model.SenderAI, reply); err != nil {
		return "", fmt.Errorf("append AI message: %w", err)
	}
	// updated_at is advisory; message order does not depend on it.
	_ = e.store.TouchSession(sessionID)

	return reply, nil
}

// EndSession appends a closing system message and transitions the session
// to completed. Terminal: ending twice fails with ErrSessionCompleted.
func (e *Engine) EndSession(ctx context.Context, sessionID int64, learnerID string) error {
	sess, err := e.ownedSession(sessionID, learnerID)
	if err != nil {
		return err
	}
	if sess.Status == model.StatusCompleted {
		return fmt.Errorf("session %d: %w", sessionID, ErrSessionCompleted)
	}

	if _, err := e.store.AppendMessage(sessionID, model.SenderSystem, i18n.T(ctx, "tutor.closing")); err != nil {
		return fmt.Errorf("append closing message: %w", err)
	}
	if err := e.store.CompleteSession(sessionID); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// Transcript returns the session's full ordered transcript.
func (e *Engine) Transcript(sessionID int64, learnerID string) ([]model.TutorMessage, error) {
	if _, err := e.ownedSession(sessionID, learnerID); err != nil {
		return nil, err
	}
	msgs, err := e.store.MessagesBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return msgs, nil
}

// Sessions lists the learner's sessions, newest first.
func (e *Engine) Sessions(learnerID string) ([]model.TutorSession, error) {
	return e.store.ListSessions(learnerID)
}

// ownedSession loads a session and checks ownership. A session belonging
// to another learner is reported as not found.
func (e *Engine) ownedSession(sessionID int64, learnerID string) (*model.TutorSession, error) {
	sess, err := e.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || sess.LearnerID != learnerID {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrSessionNotFound)
	}
	return sess, nil
}

func (e *Engine) learnerContext(learnerID string) (model.LearnerContext, error) {
	enrollments, err := e.profile.Enrollments(learnerID)
	if err != nil {
		return model.LearnerContext{}, fmt.Errorf("enrollments: %w", err)
	}
	recent, err := e.profile.RecentProgress(learnerID, e.cfg.RecentLessons)
	if err != nil {
		return model.LearnerContext{}, fmt.Errorf("recent progress: %w", err)
	}
	return model.LearnerContext{Enrollments: enrollments, Recent: recent}, nil
}
