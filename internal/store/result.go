package store

import (
	"time"

	"github.com/msorokin/edupath/internal/model"
)

// CreateResult persists a finalized diagnostic result with its per-question
// responses as one transaction. Results are append-only.
func (s *Store) CreateResult(r model.DiagnosticResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	completedAt := r.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}
	res, err := tx.Exec(
		`INSERT INTO diagnostic_results (learner_id, score, recommendation, completed_at)
		 VALUES (?, ?, ?, ?)`,
		r.LearnerID, r.Score, r.Recommendation, completedAt,
	)
	if err != nil {
		return 0, err
	}
	resultID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, resp := range r.Responses {
		_, err := tx.Exec(
			`INSERT INTO result_responses (result_id, question_id, selected, correct)
			 VALUES (?, ?, ?, ?)`,
			resultID, resp.QuestionID, resp.Selected, resp.Correct,
		)
		if err != nil {
			return 0, err
		}
	}

	return resultID, tx.Commit()
}

// GetResult returns a result with its responses by ID.
func (s *Store) GetResult(id int64) (model.DiagnosticResult, error) {
	var r model.DiagnosticResult
	err := s.db.QueryRow(
		`SELECT id, learner_id, score, recommendation, completed_at
		 FROM diagnostic_results WHERE id = ?`, id,
	).Scan(&r.ID, &r.LearnerID, &r.Score, &r.Recommendation, &r.CompletedAt)
	if err != nil {
		return r, err
	}
	r.Responses, err = s.resultResponses(id)
	return r, err
}

// ListResults returns all results for a learner, newest first.
func (s *Store) ListResults(learnerID string) ([]model.DiagnosticResult, error) {
	rows, err := s.db.Query(
		`SELECT id, learner_id, score, recommendation, completed_at
		 FROM diagnostic_results WHERE learner_id = ? ORDER BY id DESC`, learnerID,
	)
	if err != nil {
		return nil, err
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
	for i := range results {
		if results[i].Responses, err = s.resultResponses(results[i].ID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *Store) resultResponses(resultID int64) ([]model.QuestionResponse, error) {
	rows, err := s.db.Query(
		`SELECT question_id, selected, correct FROM result_responses
		 WHERE result_id = ? ORDER BY id`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var responses []model.QuestionResponse
	for rows.Next() {
		var resp model.QuestionResponse
		if err := rows.Scan(&resp.QuestionID, &resp.Selected, &resp.Correct); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
