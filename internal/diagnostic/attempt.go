package diagnostic

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/msorokin/edupath/internal/model"
)

// ErrInvalidState indicates an operation was invoked on an attempt that is
// already completed, or before its precondition state exists.
var ErrInvalidState = errors.New("invalid attempt state")

// State represents the attempt lifecycle. Completed is terminal.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// SubjectQuestions pairs a subject with the questions shown for it and
// where they came from.
type SubjectQuestions struct {
	Subject   model.Subject    `json:"subject"`
	Questions []model.Question `json:"questions"`
	Origin    Origin           `json:"origin"`
}

// Attempt is an explicit value object for one learner's traversal of a
// diagnostic. Navigation and answer selection are plain methods over it,
// so the whole state machine is testable without any transport or storage.
// The subject pointer stays within [0, len(Subjects)) and the question
// pointer within [0, len(current subject's questions)) at all times.
type Attempt struct {
	ID          string             `json:"id"`
	LearnerID   string             `json:"learner_id"`
	Subjects    []SubjectQuestions `json:"subjects"`
	SubjectIdx  int                `json:"subject_idx"`
	QuestionIdx int                `json:"question_idx"`
	Answers     map[int64]int      `json:"answers"`
	State       State              `json:"state"`
}

// NewAttempt builds an in-progress attempt over the given subjects.
// Subjects with zero questions are tolerated by skipping them. Fails if
// nothing remains to traverse.
func NewAttempt(learnerID string, subjects []SubjectQuestions) (*Attempt, error) {
	var nonEmpty []SubjectQuestions
	for _, sq := range subjects {
		if len(sq.Questions) > 0 {
			nonEmpty = append(nonEmpty, sq)
		}
	}
	if len(nonEmpty) == 0 {
		return nil, fmt.Errorf("%w: no questions to traverse", ErrInvalidState)
	}
	return &Attempt{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		Subjects:  nonEmpty,
		Answers:   make(map[int64]int),
		State:     StateInProgress,
	}, nil
}

// CurrentSubject returns the subject the learner is on.
func (a *Attempt) CurrentSubject() model.Subject {
	return a.Subjects[a.SubjectIdx].Subject
}

// CurrentQuestion returns the question the learner is on.
func (a *Attempt) CurrentQuestion() model.Question {
	return a.Subjects[a.SubjectIdx].Questions[a.QuestionIdx]
}

// SelectAnswer records the selected option for a question, overwriting any
// prior selection. Option indices are not range-checked here; out-of-range
// values score as incorrect rather than failing the attempt.
func (a *Attempt) SelectAnswer(questionID int64, option int) error {
	if a.State != StateInProgress {
		return fmt.Errorf("%w: attempt is %s", ErrInvalidState, a.State)
	}
	a.Answers[questionID] = option
	return nil
}

// Advance moves to the next question, crossing into the next subject when
// the current one is exhausted. At the last question of the last subject it
// returns done=true without moving; the caller should then finalize.
// Advancing requires an answer for the current question.
func (a *Attempt) Advance() (done bool, err error) {
	if a.State != StateInProgress {
		return false, fmt.Errorf("%w: attempt is %s", ErrInvalidState, a.State)
	}
	if _, answered := a.Answers[a.CurrentQuestion().ID]; !answered {
		return false, fmt.Errorf("%w: current question has no answer", ErrInvalidState)
	}

	if a.QuestionIdx < len(a.Subjects[a.SubjectIdx].Questions)-1 {
		a.QuestionIdx++
		return false, nil
	}
	if a.SubjectIdx < len(a.Subjects)-1 {
		a.SubjectIdx++
		a.QuestionIdx = 0
		return false, nil
	}
	return true, nil
}

// Retreat moves back one question, landing on the last question of the
// previous subject when crossing a boundary. At the very first question of
// the very first subject it is a no-op and reports moved=false.
func (a *Attempt) Retreat() (moved bool) {
	if a.State != StateInProgress {
		return false
	}
	if a.QuestionIdx > 0 {
		a.QuestionIdx--
		return true
	}
	if a.SubjectIdx > 0 {
		a.SubjectIdx--
		a.QuestionIdx = len(a.Subjects[a.SubjectIdx].Questions) - 1
		return true
	}
	return false
}

// shownQuestions returns every question in traversal order.
func (a *Attempt) shownQuestions() []model.Question {
	var questions []model.Question
	for _, sq := range a.Subjects {
		questions = append(questions, sq.Questions...)
	}
	return questions
}
