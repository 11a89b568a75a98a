package store

import (
	"encoding/json"
	"fmt"

	"github.com/msorokin/edupath/internal/model"
)

// InsertQuestion stores a single question. Options are serialized as JSON.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("marshal options: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (subject_id, text, options, correct_answer, difficulty, explanation)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.SubjectID, q.Text, string(opts), q.CorrectAnswer, q.Difficulty, q.Explanation,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertQuestions stores a batch of questions for one subject in a single
// transaction. Returns the stored questions with their assigned IDs.
func (s *Store) InsertQuestions(subjectID int64, questions []model.Question) ([]model.Question, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stored := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		q.SubjectID = subjectID
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
		res, err := tx.Exec(
			`INSERT INTO questions (subject_id, text, options, correct_answer, difficulty, explanation)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			q.SubjectID, q.Text, string(opts), q.CorrectAnswer, q.Difficulty, q.Explanation,
		)
		if err != nil {
			return nil, err
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return nil, err
		}
		stored = append(stored, q)
	}

	return stored, tx.Commit()
}

// QuestionsBySubject returns all questions for a subject ordered by id.
func (s *Store) QuestionsBySubject(subjectID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, text, options, correct_answer, difficulty, explanation
		 FROM questions WHERE subject_id = ? ORDER BY id`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var opts string
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.Text, &opts, &q.CorrectAnswer, &q.Difficulty, &q.Explanation); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	var opts string
	err := s.db.QueryRow(
		`SELECT id, subject_id, text, options, correct_answer, difficulty, explanation
		 FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.SubjectID, &q.Text, &opts, &q.CorrectAnswer, &q.Difficulty, &q.Explanation)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return q, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
	}
	return q, nil
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
