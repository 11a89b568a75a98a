package store

import (
	"time"

	"github.com/msorokin/edupath/internal/model"
)

// UpsertEnrollment records a learner's enrollment in a module, updating
// the status if the enrollment already exists.
func (s *Store) UpsertEnrollment(e model.Enrollment) error {
	_, err := s.db.Exec(
		`INSERT INTO enrollments (learner_id, subject, module, status)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(learner_id, subject, module) DO UPDATE SET status = ?`,
		e.LearnerID, e.Subject, e.Module, e.Status, e.Status,
	)
	return err
}

// Enrollments returns a learner's enrollments ordered by subject, module.
func (s *Store) Enrollments(learnerID string) ([]model.Enrollment, error) {
	rows, err := s.db.Query(
		`SELECT learner_id, subject, module, status FROM enrollments
		 WHERE learner_id = ? ORDER BY subject, module`, learnerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.LearnerID, &e.Subject, &e.Module, &e.Status); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// RecordLessonProgress upserts a learner's progress in a lesson and stamps
// last_accessed.
func (s *Store) RecordLessonProgress(p model.LessonProgress) error {
	accessed := p.LastAccessed
	if accessed.IsZero() {
		accessed = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO lesson_progress (learner_id, lesson, module, subject, status, last_accessed)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(learner_id, subject, module, lesson) DO UPDATE SET status = ?, last_accessed = ?`,
		p.LearnerID, p.Lesson, p.Module, p.Subject, p.Status, accessed, p.Status, accessed,
	)
	return err
}

// RecentProgress returns the learner's most recently accessed lesson
// progress rows, newest first, capped at limit.
func (s *Store) RecentProgress(learnerID string, limit int) ([]model.LessonProgress, error) {
	rows, err := s.db.Query(
		`SELECT learner_id, lesson, module, subject, status, last_accessed
		 FROM lesson_progress WHERE learner_id = ?
		 ORDER BY last_accessed DESC, id DESC LIMIT ?`, learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var progress []model.LessonProgress
	for rows.Next() {
		var p model.LessonProgress
		if err := rows.Scan(&p.LearnerID, &p.Lesson, &p.Module, &p.Subject, &p.Status, &p.LastAccessed); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
