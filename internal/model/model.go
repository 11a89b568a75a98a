package model

import (
	"context"
	"time"
)

// Difficulty represents a question difficulty tier.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Sender identifies who authored a tutor message.
type Sender string

const (
	SenderSystem Sender = "system"
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
)

// SessionStatus represents the lifecycle state of a tutor session.
// The only legal transition is StatusInProgress -> StatusCompleted.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Subject is a named knowledge domain. Reference data, created at setup
// time and never mutated afterwards.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Question is a multiple-choice diagnostic question belonging to one
// subject. CorrectAnswer is a 0-based index into Options.
type Question struct {
	ID            int64      `json:"id"`
	SubjectID     int64      `json:"subject_id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// UnansweredOption marks a question the learner never answered in a
// QuestionResponse. Scored as incorrect.
const UnansweredOption = -1

// QuestionResponse records one answered (or skipped) question in a
// finalized diagnostic.
type QuestionResponse struct {
	QuestionID int64 `json:"question_id"`
	Selected   int   `json:"selected"`
	Correct    bool  `json:"correct"`
}

// DiagnosticResult is the append-only outcome of one completed attempt.
// Score is the fraction of shown questions answered correctly (0.0-1.0).
type DiagnosticResult struct {
	ID             int64              `json:"id"`
	LearnerID      string             `json:"learner_id"`
	Score          float64            `json:"score"`
	Responses      []QuestionResponse `json:"responses"`
	Recommendation string             `json:"recommendation"`
	CompletedAt    time.Time          `json:"completed_at"`
}

// TutorSession is one learner's conversation with the AI tutor.
type TutorSession struct {
	ID        int64         `json:"id"`
	LearnerID string        `json:"learner_id"`
	Title     string        `json:"title"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// TutorMessage is a single immutable entry in a session transcript.
// AI content is markdown-formatted. Ordering is sent_at ascending with
// insertion order breaking ties.
type TutorMessage struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

// Enrollment is one (subject, module) a learner is enrolled in.
type Enrollment struct {
	LearnerID string `json:"learner_id"`
	Subject   string `json:"subject"`
	Module    string `json:"module"`
	Status    string `json:"status"`
}

// LessonProgress tracks a learner's standing in one lesson.
type LessonProgress struct {
	LearnerID    string    `json:"learner_id"`
	Lesson       string    `json:"lesson"`
	Module       string    `json:"module"`
	Subject      string    `json:"subject"`
	Status       string    `json:"status"`
	LastAccessed time.Time `json:"last_accessed"`
}

// LearnerContext is the derived per-turn snapshot of a learner's standing.
// Built fresh for every tutoring turn and never persisted.
type LearnerContext struct {
	Enrollments []Enrollment
	Recent      []LessonProgress
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	QuestionCount int    // questions requested per subject from the generator
	HistoryWindow int    // max transcript messages embedded in a tutor prompt (0 = all)
	BasePath      string // URL prefix for sub-path deployments (e.g. "/ru")
}

// QuestionImport is used for loading questions from JSON seed files.
type QuestionImport struct {
	Subject       string     `json:"subject"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
	Explanation   string     `json:"explanation"`
}

type learnerCtxKey struct{}

// ContextWithLearner stores the authenticated learner id in the request
// context. Identity itself is established upstream by the auth proxy.
func ContextWithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerCtxKey{}, learnerID)
}

// LearnerFromContext retrieves the learner id from context, or "".
func LearnerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(learnerCtxKey{}).(string)
	return id
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
