package model

import "time"

// ResultsExport is the top-level JSON structure for diagnostic result export.
type ResultsExport struct {
	Generated time.Time      `json:"generated"`
	Results   []ResultExport `json:"results"`
}

// ResultExport holds one learner's diagnostic result for export.
type ResultExport struct {
	LearnerID      string           `json:"learner_id"`
	Score          float64          `json:"score"`
	Recommendation string           `json:"recommendation"`
	CompletedAt    time.Time        `json:"completed_at"`
	Responses      []ResponseDetail `json:"responses"`
}

// ResponseDetail is one per-question line in an exported result, joined
// with the question text when it is still present in the store.
type ResponseDetail struct {
	QuestionID int64  `json:"question_id"`
	Question   string `json:"question,omitempty"`
	Selected   int    `json:"selected"`
	Correct    bool   `json:"correct"`
}
