package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/msorokin/edupath/internal/diagnostic"
	"github.com/msorokin/edupath/internal/i18n"
	"github.com/msorokin/edupath/internal/llm"
	"github.com/msorokin/edupath/internal/model"
	"github.com/msorokin/edupath/internal/store"
	"github.com/msorokin/edupath/internal/tutor"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type cannedChat struct{ reply string }

func (c cannedChat) Chat(context.Context, string, []llm.ChatMessage) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	diag := diagnostic.NewEngine(st, st, diagnostic.NewChain(
		diagnostic.StoreSource{Store: st},
		diagnostic.SampleSource{},
	))
	tut := tutor.NewEngine(st, st, cannedChat{reply: "Let's work through it."}, tutor.Config{HistoryWindow: 50})

	h := New(st, diag, tut, model.AppConfig{QuestionCount: 5, HistoryWindow: 50})
	r := chi.NewRouter()
	r.Route("/api", h.Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st
}

// do issues a request with the learner identity header set and decodes the
// JSON response into out when out is non-nil.
func do(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Learner-ID", "learner-1")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestMissingLearnerIdentity(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/subjects")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without X-Learner-ID", resp.StatusCode)
	}
}

func TestListSubjects(t *testing.T) {
	srv, st := newTestServer(t)
	if _, err := st.InsertSubject("Mathematics"); err != nil {
		t.Fatalf("InsertSubject: %v", err)
	}

	var subjects []model.Subject
	resp := do(t, http.MethodGet, srv.URL+"/api/subjects", nil, &subjects)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(subjects) != 1 || subjects[0].Name != "Mathematics" {
		t.Errorf("subjects = %+v", subjects)
	}
}

func TestDiagnosticFlow(t *testing.T) {
	srv, st := newTestServer(t)
	subjectID, err := st.InsertSubject("Mathematics")
	if err != nil {
		t.Fatalf("InsertSubject: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := st.InsertQuestion(model.Question{
			SubjectID:     subjectID,
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"right", "wrong", "wrong", "wrong"},
			CorrectAnswer: 0,
		}); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}

	var attempt diagnostic.Attempt
	resp := do(t, http.MethodPost, srv.URL+"/api/diagnostics",
		map[string]any{"subject_ids": []int64{subjectID}}, &attempt)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if attempt.State != diagnostic.StateInProgress {
		t.Fatalf("attempt state = %q", attempt.State)
	}

	// Answer both questions client-side, one right and one wrong.
	questions := attempt.Subjects[0].Questions
	attempt.Answers[questions[0].ID] = 0
	attempt.Answers[questions[1].ID] = 1

	var result model.DiagnosticResult
	resp = do(t, http.MethodPost, srv.URL+"/api/diagnostics/finalize", attempt, &result)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("finalize status = %d", resp.StatusCode)
	}
	if result.Score != 0.5 {
		t.Errorf("score = %v, want 0.5", result.Score)
	}

	var results []model.DiagnosticResult
	resp = do(t, http.MethodGet, srv.URL+"/api/diagnostics/results", nil, &results)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results status = %d", resp.StatusCode)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestFinalizeForeignAttemptRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	attempt := diagnostic.Attempt{
		ID:        "someone-elses",
		LearnerID: "learner-2",
		State:     diagnostic.StateInProgress,
	}
	resp := do(t, http.MethodPost, srv.URL+"/api/diagnostics/finalize", attempt, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestTutorSessionFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	var started sessionResponse
	resp := do(t, http.MethodPost, srv.URL+"/api/tutor/sessions",
		map[string]string{"title": "Fractions", "question": "What is a fraction?"}, &started)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if started.Reply != "Let's work through it." {
		t.Errorf("reply = %q", started.Reply)
	}
	sessionID := started.Session.ID

	base := fmt.Sprintf("%s/api/tutor/sessions/%d", srv.URL, sessionID)

	var posted map[string]string
	resp = do(t, http.MethodPost, base+"/messages", map[string]string{"text": "And a denominator?"}, &posted)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d", resp.StatusCode)
	}

	var transcript []model.TutorMessage
	resp = do(t, http.MethodGet, base+"/messages", nil, &transcript)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcript status = %d", resp.StatusCode)
	}
	// welcome + two turns of learner/AI pairs
	if len(transcript) != 5 {
		t.Errorf("transcript has %d messages, want 5", len(transcript))
	}

	resp = do(t, http.MethodPost, base+"/end", nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("end status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, base+"/messages", map[string]string{"text": "one more"}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("post after end status = %d, want 409", resp.StatusCode)
	}
}

func TestEnrollmentAndProgress(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/enrollments",
		map[string]string{"subject": "Mathematics", "module": "Algebra I"}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("enroll status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/progress",
		map[string]string{"subject": "Mathematics", "module": "Algebra I", "lesson": "Linear equations", "status": "completed"}, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("progress status = %d", resp.StatusCode)
	}

	var enrollments []model.Enrollment
	resp = do(t, http.MethodGet, srv.URL+"/api/enrollments", nil, &enrollments)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if len(enrollments) != 1 || enrollments[0].Status != "active" {
		t.Errorf("enrollments = %+v", enrollments)
	}
}
