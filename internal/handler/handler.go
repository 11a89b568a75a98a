package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/msorokin/edupath/internal/diagnostic"
	"github.com/msorokin/edupath/internal/i18n"
	"github.com/msorokin/edupath/internal/llm"
	"github.com/msorokin/edupath/internal/model"
	"github.com/msorokin/edupath/internal/store"
	"github.com/msorokin/edupath/internal/tutor"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	diag   *diagnostic.Engine
	tutor  *tutor.Engine
	config model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, d *diagnostic.Engine, t *tutor.Engine, cfg model.AppConfig) *Handler {
	return &Handler{store: s, diag: d, tutor: t, config: cfg}
}

// Routes registers all HTTP routes. Every route requires an authenticated
// learner identity.
func (h *Handler) Routes(r chi.Router) {
	r.Use(requireLearner)

	r.Get("/subjects", h.handleListSubjects)
	r.Get("/subjects/{subjectID}/questions", h.handleSubjectQuestions)

	r.Post("/diagnostics", h.handleStartDiagnostic)
	r.Post("/diagnostics/finalize", h.handleFinalizeDiagnostic)
	r.Get("/diagnostics/results", h.handleListResults)

	r.Post("/tutor/sessions", h.handleStartSession)
	r.Get("/tutor/sessions", h.handleListSessions)
	r.Get("/tutor/sessions/{sessionID}/messages", h.handleTranscript)
	r.Post("/tutor/sessions/{sessionID}/messages", h.handlePostMessage)
	r.Post("/tutor/sessions/{sessionID}/end", h.handleEndSession)

	r.Get("/enrollments", h.handleListEnrollments)
	r.Put("/enrollments", h.handleUpsertEnrollment)
	r.Post("/progress", h.handleRecordProgress)
}

// BasePathMiddleware records the configured URL prefix in the request
// context so responses can build absolute links under sub-path deployments.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(model.ContextWithBasePath(r.Context(), h.config.BasePath)))
	})
}

// requireLearner resolves the learner identity set by the platform's
// authentication gateway and rejects requests without one.
func requireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		learnerID := r.Header.Get("X-Learner-ID")
		if learnerID == "" {
			respondError(w, http.StatusUnauthorized, "missing learner identity")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithLearner(r.Context(), learnerID)))
	})
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.diag.ListSubjects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleSubjectQuestions(w http.ResponseWriter, r *http.Request) {
	subjectID, err := strconv.ParseInt(chi.URLParam(r, "subjectID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid subject ID")
		return
	}
	subject, err := h.store.GetSubject(subjectID)
	if err != nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}

	set, err := h.diag.Questions(r.Context(), subject)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, set)
}

type startDiagnosticRequest struct {
	// SubjectIDs limits the attempt to specific subjects. Empty means all.
	SubjectIDs []int64 `json:"subject_ids"`
}

func (h *Handler) handleStartDiagnostic(w http.ResponseWriter, r *http.Request) {
	var req startDiagnosticRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	all, err := h.diag.ListSubjects()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	subjects := all
	if len(req.SubjectIDs) > 0 {
		byID := make(map[int64]model.Subject, len(all))
		for _, s := range all {
			byID[s.ID] = s
		}
		subjects = subjects[:0:0]
		for _, id := range req.SubjectIDs {
			s, ok := byID[id]
			if !ok {
				respondError(w, http.StatusBadRequest, "unknown subject ID "+strconv.FormatInt(id, 10))
				return
			}
			subjects = append(subjects, s)
		}
	}

	learnerID := model.LearnerFromContext(r.Context())
	attempt, err := h.diag.Start(r.Context(), learnerID, subjects)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, attempt)
}

// handleFinalizeDiagnostic scores a client-held attempt and persists the
// result. The attempt travels in the request body; navigation happened on
// the client against the attempt the start endpoint returned.
func (h *Handler) handleFinalizeDiagnostic(w http.ResponseWriter, r *http.Request) {
	var attempt diagnostic.Attempt
	if err := decodeJSON(r, &attempt); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	learnerID := model.LearnerFromContext(r.Context())
	if attempt.LearnerID != learnerID {
		respondError(w, http.StatusForbidden, "attempt belongs to a different learner")
		return
	}
	if attempt.Answers == nil {
		attempt.Answers = make(map[int64]int)
	}

	result, err := h.diag.Finalize(r.Context(), &attempt)
	if err != nil {
		if errors.Is(err, diagnostic.ErrInvalidState) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	learnerID := model.LearnerFromContext(r.Context())
	results, err := h.store.ListResults(learnerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, results)
}

type startSessionRequest struct {
	Title    string `json:"title"`
	Question string `json:"question"`
}

type sessionResponse struct {
	Session *model.TutorSession `json:"session"`
	Reply   string              `json:"reply,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	learnerID := model.LearnerFromContext(r.Context())
	sess, reply, err := h.tutor.StartSession(r.Context(), learnerID, req.Title, req.Question)
	if err != nil {
		var genErr *llm.GenerationError
		if sess != nil && errors.As(err, &genErr) {
			// The session exists; only the opening turn failed. Return it
			// so the learner can retry the question in place.
			respondJSON(w, http.StatusCreated, sessionResponse{
				Session: sess,
				Error:   i18n.T(r.Context(), "tutor.trouble"),
			})
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Session: sess, Reply: reply})
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	learnerID := model.LearnerFromContext(r.Context())
	sessions, err := h.tutor.Sessions(learnerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	learnerID := model.LearnerFromContext(r.Context())

	msgs, err := h.tutor.Transcript(sessionID, learnerID)
	if err != nil {
		h.tutorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

type postMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "message text cannot be empty")
		return
	}

	learnerID := model.LearnerFromContext(r.Context())
	reply, err := h.tutor.PostMessage(r.Context(), sessionID, learnerID, req.Text)
	if err != nil {
		h.tutorError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	learnerID := model.LearnerFromContext(r.Context())

	if err := h.tutor.EndSession(r.Context(), sessionID, learnerID); err != nil {
		h.tutorError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	learnerID := model.LearnerFromContext(r.Context())
	enrollments, err := h.store.Enrollments(learnerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, enrollments)
}

type enrollmentRequest struct {
	Subject string `json:"subject"`
	Module  string `json:"module"`
	Status  string `json:"status"`
}

func (h *Handler) handleUpsertEnrollment(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Subject == "" || req.Module == "" {
		respondError(w, http.StatusBadRequest, "subject and module are required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	learnerID := model.LearnerFromContext(r.Context())
	err := h.store.UpsertEnrollment(model.Enrollment{
		LearnerID: learnerID,
		Subject:   req.Subject,
		Module:    req.Module,
		Status:    req.Status,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Subject string `json:"subject"`
	Module  string `json:"module"`
	Lesson  string `json:"lesson"`
	Status  string `json:"status"`
}

func (h *Handler) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Subject == "" || req.Module == "" || req.Lesson == "" {
		respondError(w, http.StatusBadRequest, "subject, module and lesson are required")
		return
	}
	if req.Status == "" {
		req.Status = "in_progress"
	}

	learnerID := model.LearnerFromContext(r.Context())
	err := h.store.RecordLessonProgress(model.LessonProgress{
		LearnerID: learnerID,
		Subject:   req.Subject,
		Module:    req.Module,
		Lesson:    req.Lesson,
		Status:    req.Status,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tutorError maps tutoring engine errors to HTTP responses. Generation
// failures return a localized message the client can show directly.
func (h *Handler) tutorError(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, tutor.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, tutor.ErrSessionCompleted):
		respondError(w, http.StatusConflict, "session already completed")
	case errors.As(err, &genErr):
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "tutor.trouble"))
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
