package diagnostic

import (
	"fmt"

	"github.com/msorokin/edupath/internal/model"
)

// fallbackSubjects is the fixed placeholder set used when the store holds
// no subjects at all. Negative IDs mark them as unpersisted; they have no
// backing questions beyond the sample set.
var fallbackSubjects = []model.Subject{
	{ID: -1, Name: "Mathematics"},
	{ID: -2, Name: "Science"},
	{ID: -3, Name: "Language Arts"},
	{ID: -4, Name: "History"},
}

// sampleQuestions returns the canned degraded-mode set for a subject: two
// fixed questions plus three templated on the subject name. Sample content
// is never persisted, so each question gets a synthetic negative ID that is
// unique within any one attempt.
func sampleQuestions(subject model.Subject) []model.Question {
	questions := []model.Question{
		{
			SubjectID:     subject.ID,
			Text:          "If a lesson takes 20 minutes and you complete three lessons, how long did you study?",
			Options:       []string{"40 minutes", "60 minutes", "80 minutes", "90 minutes"},
			CorrectAnswer: 1,
			Difficulty:    model.DifficultyBeginner,
			Explanation:   "Three lessons at 20 minutes each is 60 minutes.",
		},
		{
			SubjectID: subject.ID,
			Text:      "What is the most effective response to getting a practice question wrong?",
			Options: []string{
				"Skip ahead to the next topic",
				"Reread the explanation and retry the question",
				"Memorize the answer letter",
				"Avoid that topic in the future",
			},
			CorrectAnswer: 1,
			Difficulty:    model.DifficultyBeginner,
			Explanation:   "Working through the explanation turns a mistake into understanding.",
		},
		{
			SubjectID: subject.ID,
			Text:      fmt.Sprintf("What is the best first step when starting a new %s topic?", subject.Name),
			Options: []string{
				"Review the fundamentals it builds on",
				"Attempt the hardest problems first",
				"Read only the summary",
				"Wait until an exam is scheduled",
			},
			CorrectAnswer: 0,
			Difficulty:    model.DifficultyBeginner,
			Explanation:   "New material is easiest to absorb on top of solid fundamentals.",
		},
		{
			SubjectID: subject.ID,
			Text:      fmt.Sprintf("How often should you review %s material you have already learned?", subject.Name),
			Options: []string{
				"Never, once is enough",
				"Only the night before an exam",
				"At regular spaced intervals",
				"Every topic, every day",
			},
			CorrectAnswer: 2,
			Difficulty:    model.DifficultyIntermediate,
			Explanation:   "Spaced review is far more effective for retention than cramming.",
		},
		{
			SubjectID: subject.ID,
			Text:      fmt.Sprintf("Which resource helps most when a %s concept stays unclear?", subject.Name),
			Options: []string{
				"A worked example with a step-by-step explanation",
				"A list of final answers",
				"A harder problem on the same concept",
				"A different subject entirely",
			},
			CorrectAnswer: 0,
			Difficulty:    model.DifficultyIntermediate,
			Explanation:   "Worked examples expose the reasoning, not just the result.",
		},
	}

	sid := subject.ID
	if sid < 0 {
		sid = -sid
	}
	for i := range questions {
		questions[i].ID = -(sid*100 + int64(i) + 1)
	}
	return questions
}
