package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msorokin/edupath/internal/model"
)

// Origin tags where a question set came from, so callers can detect
// degraded-mode content.
type Origin string

const (
	OriginStore     Origin = "store"
	OriginGenerated Origin = "generated"
	OriginSample    Origin = "sample"
)

// ErrNoQuestions is returned by a source that has nothing for a subject.
var ErrNoQuestions = errors.New("no questions for subject")

// QuestionSet is an ordered question sequence with its origin.
type QuestionSet struct {
	Questions []model.Question `json:"questions"`
	Origin    Origin           `json:"origin"`
}

// Source yields questions for a subject or reports it cannot serve it.
type Source interface {
	Questions(ctx context.Context, subject model.Subject) (QuestionSet, error)
}

// QuestionStore is the persistence surface the question sources need.
type QuestionStore interface {
	QuestionsBySubject(subjectID int64) ([]model.Question, error)
	InsertQuestions(subjectID int64, questions []model.Question) ([]model.Question, error)
}

// Generator is the external content-generation capability.
type Generator interface {
	GenerateQuestions(ctx context.Context, subject string, level model.Difficulty, count int) ([]model.Question, error)
}

// StoreSource serves questions already persisted for a subject.
type StoreSource struct {
	Store QuestionStore
}

func (s StoreSource) Questions(_ context.Context, subject model.Subject) (QuestionSet, error) {
	questions, err := s.Store.QuestionsBySubject(subject.ID)
	if err != nil {
		return QuestionSet{}, fmt.Errorf("load questions for subject %d: %w", subject.ID, err)
	}
	if len(questions) == 0 {
		return QuestionSet{}, fmt.Errorf("subject %q: %w", subject.Name, ErrNoQuestions)
	}
	return QuestionSet{Questions: questions, Origin: OriginStore}, nil
}

// GeneratorSource asks the content generator for fresh questions and
// persists them before returning, so the next attempt finds them in the
// store.
type GeneratorSource struct {
	Generator Generator
	Store     QuestionStore
	Level     model.Difficulty
	Count     int
}

func (g GeneratorSource) Questions(ctx context.Context, subject model.Subject) (QuestionSet, error) {
	count := g.Count
	if count <= 0 {
		count = 5
	}
	questions, err := g.Generator.GenerateQuestions(ctx, subject.Name, g.Level, count)
	if err != nil {
		return QuestionSet{}, fmt.Errorf("generate questions for %q: %w", subject.Name, err)
	}

	stored, err := g.Store.InsertQuestions(subject.ID, questions)
	if err != nil {
		return QuestionSet{}, fmt.Errorf("persist generated questions for %q: %w", subject.Name, err)
	}
	return QuestionSet{Questions: stored, Origin: OriginGenerated}, nil
}

// SampleSource serves the built-in sample set. It never fails, which makes
// it the terminal link of a fallback chain.
type SampleSource struct{}

func (SampleSource) Questions(_ context.Context, subject model.Subject) (QuestionSet, error) {
	return QuestionSet{Questions: sampleQuestions(subject), Origin: OriginSample}, nil
}

// Chain tries each source in order and returns the first that serves the
// subject. Earlier failures are absorbed and logged, never surfaced; only
// the final source's error propagates.
type Chain struct {
	sources []Source
}

// NewChain builds a fallback chain from the given sources, tried in order.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) Questions(ctx context.Context, subject model.Subject) (QuestionSet, error) {
	var lastErr error
	for i, src := range c.sources {
		set, err := src.Questions(ctx, subject)
		if err == nil {
			if i > 0 {
				slog.Info("question source fell back",
					"subject", subject.Name, "origin", set.Origin)
			}
			return set, nil
		}
		lastErr = err
		if !errors.Is(err, ErrNoQuestions) {
			slog.Warn("question source failed", "subject", subject.Name, "error", err)
		}
	}
	return QuestionSet{}, lastErr
}
