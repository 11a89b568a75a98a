package diagnostic

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/msorokin/edupath/internal/i18n"
	"github.com/msorokin/edupath/internal/model"
	"github.com/msorokin/edupath/internal/store"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	st := newSourceTestStore(t)
	chain := NewChain(StoreSource{Store: st}, SampleSource{})
	return NewEngine(st, st, chain), st
}

// seedSubject inserts a subject with three questions whose correct answer
// is always option 0.
func seedSubject(t *testing.T, st *store.Store, name string) model.Subject {
	t.Helper()
	id, err := st.InsertSubject(name)
	if err != nil {
		t.Fatalf("InsertSubject: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := st.InsertQuestion(model.Question{
			SubjectID:     id,
			Text:          name + " question",
			Options:       []string{"right", "wrong", "wrong", "wrong"},
			CorrectAnswer: 0,
		}); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}
	return model.Subject{ID: id, Name: name}
}

func TestListSubjectsFallback(t *testing.T) {
	eng, st := newTestEngine(t)

	subjects, err := eng.ListSubjects()
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != len(fallbackSubjects) {
		t.Fatalf("empty store: got %d subjects, want the %d placeholders", len(subjects), len(fallbackSubjects))
	}
	for _, s := range subjects {
		if s.ID >= 0 {
			t.Errorf("placeholder subject %q has non-negative ID %d", s.Name, s.ID)
		}
	}

	seedSubject(t, st, "Mathematics")
	subjects, err = eng.ListSubjects()
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 1 || subjects[0].Name != "Mathematics" {
		t.Errorf("seeded store: got %+v, want the stored subject only", subjects)
	}
}

func TestFinalizeScoresAndPersists(t *testing.T) {
	eng, st := newTestEngine(t)
	subject := seedSubject(t, st, "Mathematics")

	a, err := eng.Start(context.Background(), "learner-1", []model.Subject{subject})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Two right, one wrong.
	answers := []int{0, 0, 1}
	for _, option := range answers {
		if err := a.SelectAnswer(a.CurrentQuestion().ID, option); err != nil {
			t.Fatalf("SelectAnswer: %v", err)
		}
		if _, err := a.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	result, err := eng.Finalize(context.Background(), a)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := 2.0 / 3.0; result.Score != want {
		t.Errorf("score = %v, want %v", result.Score, want)
	}
	if a.State != StateCompleted {
		t.Errorf("attempt state = %q, want completed", a.State)
	}
	if result.ID == 0 {
		t.Error("result not persisted")
	}

	stored, err := st.GetResult(result.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if len(stored.Responses) != 3 {
		t.Errorf("persisted %d responses, want 3", len(stored.Responses))
	}

	// A finalized attempt cannot be finalized again.
	if _, err := eng.Finalize(context.Background(), a); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Finalize: got %v, want ErrInvalidState", err)
	}
}

func TestFinalizeUnansweredScoredIncorrect(t *testing.T) {
	eng, st := newTestEngine(t)
	subject := seedSubject(t, st, "Science")

	a, err := eng.Start(context.Background(), "learner-1", []model.Subject{subject})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Answer only the first question, correctly, then finalize early.
	if err := a.SelectAnswer(a.CurrentQuestion().ID, 0); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	result, err := eng.Finalize(context.Background(), a)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if want := 1.0 / 3.0; result.Score != want {
		t.Errorf("score = %v, want %v (all shown questions count)", result.Score, want)
	}

	unanswered := 0
	for _, r := range result.Responses {
		if r.Selected == model.UnansweredOption {
			unanswered++
			if r.Correct {
				t.Error("unanswered response marked correct")
			}
		}
	}
	if unanswered != 2 {
		t.Errorf("got %d unanswered responses, want 2", unanswered)
	}
}

func TestFinalizeRecommendationBands(t *testing.T) {
	tests := []struct {
		name    string
		answers []int
		want    string
	}{
		{"all correct goes advanced", []int{0, 0, 0}, "advanced material"},
		{"two thirds goes intermediate", []int{0, 0, 1}, "Intermediate modules"},
		{"one third goes foundations", []int{0, 1, 1}, "foundational modules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, st := newTestEngine(t)
			subject := seedSubject(t, st, "Mathematics")

			a, err := eng.Start(context.Background(), "learner-1", []model.Subject{subject})
			if err != nil {
				t.Fatalf("Start: %v", err)
			}
			for _, option := range tt.answers {
				a.SelectAnswer(a.CurrentQuestion().ID, option)
				a.Advance()
			}

			result, err := eng.Finalize(context.Background(), a)
			if err != nil {
				t.Fatalf("Finalize: %v", err)
			}
			if !strings.Contains(result.Recommendation, tt.want) {
				t.Errorf("recommendation %q does not mention %q", result.Recommendation, tt.want)
			}
		})
	}
}

func TestStartWithSampleFallback(t *testing.T) {
	eng, _ := newTestEngine(t)

	// Nothing in the store: every subject falls back to samples.
	a, err := eng.Start(context.Background(), "learner-1", fallbackSubjects[:2])
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, sq := range a.Subjects {
		if sq.Origin != OriginSample {
			t.Errorf("subject %q origin = %q, want sample", sq.Subject.Name, sq.Origin)
		}
	}

	// Fallback attempts still finalize and persist normally.
	for {
		a.SelectAnswer(a.CurrentQuestion().ID, 0)
		done, err := a.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if done {
			break
		}
	}
	result, err := eng.Finalize(context.Background(), a)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.ID == 0 {
		t.Error("fallback result not persisted")
	}
}

// brokenResultStore simulates a persistence outage.
type brokenResultStore struct{ err error }

func (b brokenResultStore) CreateResult(model.DiagnosticResult) (int64, error) {
	return 0, b.err
}

func TestFinalizePersistenceFailureKeepsAttemptOpen(t *testing.T) {
	st := newSourceTestStore(t)
	subject := seedSubject(t, st, "Mathematics")

	outage := errors.New("disk full")
	eng := NewEngine(st, brokenResultStore{err: outage}, NewChain(StoreSource{Store: st}))

	a, err := eng.Start(context.Background(), "learner-1", []model.Subject{subject})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	a.SelectAnswer(a.CurrentQuestion().ID, 0)

	if _, err := eng.Finalize(context.Background(), a); !errors.Is(err, outage) {
		t.Fatalf("Finalize: got %v, want the persistence error", err)
	}
	if a.State != StateInProgress {
		t.Errorf("attempt state = %q after failed persist, want still in_progress", a.State)
	}
}
