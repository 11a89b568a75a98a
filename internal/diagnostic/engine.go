package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/msorokin/edupath/internal/i18n"
	"github.com/msorokin/edupath/internal/model"
)

// SubjectStore lists the persisted subjects.
type SubjectStore interface {
	ListSubjects() ([]model.Subject, error)
}

// ResultStore persists finalized diagnostic results.
type ResultStore interface {
	CreateResult(r model.DiagnosticResult) (int64, error)
}

// Engine drives a learner through subjects and questions, records answers,
// and turns a finished traversal into a persisted result.
type Engine struct {
	subjects SubjectStore
	results  ResultStore
	sources  *Chain
}

// NewEngine creates a diagnostic engine over the given stores and question
// fallback chain.
func NewEngine(subjects SubjectStore, results ResultStore, sources *Chain) *Engine {
	return &Engine{subjects: subjects, results: results, sources: sources}
}

// ListSubjects returns the subjects to traverse, in stable order. When the
// store holds none, it returns the built-in placeholder set so callers are
// never left with an empty list; placeholders are not persisted.
func (e *Engine) ListSubjects() ([]model.Subject, error) {
	subjects, err := e.subjects.ListSubjects()
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	if len(subjects) == 0 {
		slog.Info("no subjects in store, using built-in placeholders")
		return fallbackSubjects, nil
	}
	return subjects, nil
}

// Questions resolves the question set for a subject through the fallback
// chain: store, then generator, then built-in samples. The returned set's
// Origin tells the caller whether it received degraded content.
func (e *Engine) Questions(ctx context.Context, subject model.Subject) (QuestionSet, error) {
	return e.sources.Questions(ctx, subject)
}

// Start builds an in-progress attempt covering the given subjects, loading
// each subject's questions through the fallback chain. Subjects that end
// up with zero questions are skipped.
func (e *Engine) Start(ctx context.Context, learnerID string, subjects []model.Subject) (*Attempt, error) {
	var sets []SubjectQuestions
	for _, subject := range subjects {
		set, err := e.Questions(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("questions for subject %q: %w", subject.Name, err)
		}
		sets = append(sets, SubjectQuestions{
			Subject:   subject,
			Questions: set.Questions,
			Origin:    set.Origin,
		})
	}
	return NewAttempt(learnerID, sets)
}

// Finalize scores an attempt and persists the result. Every question shown
// counts toward the denominator; unanswered or out-of-range selections
// score as incorrect. On persistence failure the attempt stays in progress
// so the caller may retry; on success the attempt is completed and accepts
// no further mutation.
func (e *Engine) Finalize(ctx context.Context, a *Attempt) (*model.DiagnosticResult, error) {
	if a.State != StateInProgress {
		return nil, fmt.Errorf("%w: attempt is %s", ErrInvalidState, a.State)
	}

	shown := a.shownQuestions()
	if len(shown) == 0 {
		return nil, fmt.Errorf("%w: attempt has no questions", ErrInvalidState)
	}
	responses := make([]model.QuestionResponse, 0, len(shown))
	correct := 0
	for _, q := range shown {
		selected, answered := a.Answers[q.ID]
		if !answered {
			selected = model.UnansweredOption
		}
		isCorrect := answered && selected == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		responses = append(responses, model.QuestionResponse{
			QuestionID: q.ID,
			Selected:   selected,
			Correct:    isCorrect,
		})
	}

	result := model.DiagnosticResult{
		LearnerID:      a.LearnerID,
		Score:          float64(correct) / float64(len(shown)),
		Responses:      responses,
		Recommendation: recommendation(ctx, correct, len(shown)),
		CompletedAt:    time.Now(),
	}

	id, err := e.results.CreateResult(result)
	if err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}
	result.ID = id
	a.State = StateCompleted

	slog.Info("diagnostic finalized",
		"learner", a.LearnerID, "score", result.Score, "questions", len(shown))
	return &result, nil
}

// recommendation builds the localized recommendation text for a score.
func recommendation(ctx context.Context, correct, total int) string {
	text := i18n.Tp(ctx, "diagnostic.correct_count", correct) + " "
	switch score := float64(correct) / float64(total); {
	case score >= 0.8:
		return text + i18n.T(ctx, "diagnostic.recommendation.advanced")
	case score >= 0.5:
		return text + i18n.T(ctx, "diagnostic.recommendation.intermediate")
	default:
		return text + i18n.T(ctx, "diagnostic.recommendation.foundations")
	}
}
