package store

import (
	"database/sql"
	"time"

	"github.com/msorokin/edupath/internal/model"
)

// CreateSession creates a tutor session in progress.
func (s *Store) CreateSession(learnerID, title string) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO tutor_sessions (learner_id, title, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		learnerID, title, model.StatusInProgress, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSession returns a session by ID.
func (s *Store) GetSession(id int64) (*model.TutorSession, error) {
	var sess model.TutorSession
	err := s.db.QueryRow(
		`SELECT id, learner_id, title, status, created_at, updated_at, ended_at
		 FROM tutor_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.LearnerID, &sess.Title, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt, &sess.EndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns all sessions for a learner, newest first.
func (s *Store) ListSessions(learnerID string) ([]model.TutorSession, error) {
	rows, err := s.db.Query(
		`SELECT id, learner_id, title, status, created_at, updated_at, ended_at
		 FROM tutor_sessions WHERE learner_id = ? ORDER BY id DESC`, learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.TutorSession
	for rows.Next() {
		var sess model.TutorSession
		if err := rows.Scan(&sess.ID, &sess.LearnerID, &sess.Title, &sess.Status, &sess.CreatedAt, &sess.UpdatedAt, &sess.EndedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CompleteSession transitions a session to completed and stamps ended_at.
func (s *Store) CompleteSession(id int64) error {
	now := time.Now()
	_, err := s.db.Exec(
		`UPDATE tutor_sessions SET status = ?, ended_at = ?, updated_at = ? WHERE id = ?`,
		model.StatusCompleted, now, now, id,
	)
	return err
}

// TouchSession bumps updated_at. Best effort relative to message appends;
// the two need not be atomic.
func (s *Store) TouchSession(id int64) error {
	_, err := s.db.Exec(`UPDATE tutor_sessions SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// AppendMessage inserts a message into a session transcript as a single
// atomic write and returns it with its assigned id and timestamp.
func (s *Store) AppendMessage(sessionID int64, sender model.Sender, content string) (model.TutorMessage, error) {
	msg := model.TutorMessage{
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		SentAt:    time.Now(),
	}
	res, err := s.db.Exec(
		`INSERT INTO tutor_messages (session_id, sender, content, sent_at) VALUES (?, ?, ?, ?)`,
		msg.SessionID, msg.Sender, msg.Content, msg.SentAt,
	)
	if err != nil {
		return msg, err
	}
	msg.ID, err = res.LastInsertId()
	return msg, err
}

// MessagesBySession returns the full transcript ordered by sent_at
// ascending, insertion order breaking ties.
func (s *Store) MessagesBySession(sessionID int64) ([]model.TutorMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, sender, content, sent_at FROM tutor_messages
		 WHERE session_id = ? ORDER BY sent_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.TutorMessage
	for rows.Next() {
		var m model.TutorMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
