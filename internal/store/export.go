package store

import (
	"database/sql"
	"fmt"

	"github.com/msorokin/edupath/internal/model"
)

// ExportAllResults builds export-ready diagnostic results for every learner,
// joining each response with its question text where the question still
// exists in the store.
func (s *Store) ExportAllResults() ([]model.ResultExport, error) {
	rows, err := s.db.Query(
		`SELECT id, learner_id, score, recommendation, completed_at
		 FROM diagnostic_results ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []model.DiagnosticResult
	for rows.Next() {
		var r model.DiagnosticResult
		if err := rows.Scan(&r.ID, &r.LearnerID, &r.Score, &r.Recommendation, &r.CompletedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var exports []model.ResultExport
	for _, r := range results {
		responses, err := s.resultResponses(r.ID)
		if err != nil {
			return nil, fmt.Errorf("responses for result %d: %w", r.ID, err)
		}

		var details []model.ResponseDetail
		for _, resp := range responses {
			d := model.ResponseDetail{
				QuestionID: resp.QuestionID,
				Selected:   resp.Selected,
				Correct:    resp.Correct,
			}
			q, err := s.GetQuestion(resp.QuestionID)
			switch err {
			case nil:
				d.Question = q.Text
			case sql.ErrNoRows:
				// Question was generated fallback content never persisted,
				// or reference data changed since the attempt.
			default:
				return nil, fmt.Errorf("question %d: %w", resp.QuestionID, err)
			}
			details = append(details, d)
		}

		exports = append(exports, model.ResultExport{
			LearnerID:      r.LearnerID,
			Score:          r.Score,
			Recommendation: r.Recommendation,
			CompletedAt:    r.CompletedAt,
			Responses:      details,
		})
	}

	return exports, nil
}
