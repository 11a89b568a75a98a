package store

import (
	"database/sql"
	"fmt"

	"github.com/msorokin/edupath/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		correct_answer INTEGER NOT NULL,
		difficulty TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE TABLE IF NOT EXISTS diagnostic_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id TEXT NOT NULL,
		score REAL NOT NULL,
		recommendation TEXT NOT NULL DEFAULT '',
		completed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS result_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		FOREIGN KEY (result_id) REFERENCES diagnostic_results(id)
	);

	CREATE TABLE IF NOT EXISTS tutor_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in_progress',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS tutor_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES tutor_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		module TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		UNIQUE (learner_id, subject, module)
	);

	CREATE TABLE IF NOT EXISTS lesson_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id TEXT NOT NULL,
		lesson TEXT NOT NULL,
		module TEXT NOT NULL,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		last_accessed DATETIME NOT NULL,
		UNIQUE (learner_id, subject, module, lesson)
	);

	CREATE TABLE IF NOT EXISTS import_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertSubject stores a subject.
func (s *Store) InsertSubject(name string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO subjects (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubjects returns all subjects ordered by id.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(`SELECT id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// GetSubject returns a subject by ID.
func (s *Store) GetSubject(id int64) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(`SELECT id, name FROM subjects WHERE id = ?`, id).Scan(&sub.ID, &sub.Name)
	return sub, err
}

// GetSubjectByName returns a subject by name, or creates it if missing.
func (s *Store) GetSubjectByName(name string) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(`SELECT id, name FROM subjects WHERE name = ?`, name).Scan(&sub.ID, &sub.Name)
	if err == sql.ErrNoRows {
		id, err := s.InsertSubject(name)
		if err != nil {
			return sub, err
		}
		return model.Subject{ID: id, Name: name}, nil
	}
	return sub, err
}

// SubjectCount returns the number of subjects in the database.
func (s *Store) SubjectCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subjects`).Scan(&count)
	return count, err
}
