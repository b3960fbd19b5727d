package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gradeloop/gradeloop/internal/gradingsession"
	"github.com/gradeloop/gradeloop/internal/roster"
)

type CreateSessionRequest struct {
	TeacherID int64                  `json:"teacher_id"`
	ExamID    int64                  `json:"exam_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// UpdateSessionRequest is a minimal diff: nil fields are omitted from the
// wire and left untouched server-side.
type UpdateSessionRequest struct {
	CurrentStep *int                   `json:"current_step,omitempty"`
	ExamID      *int64                 `json:"exam_id,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// Gateway is the wizard's view of the grading-session backend.
//
// FetchActiveSession failures of any kind, a 404 included, are treated by
// the store as "no session"; the other operations propagate errors.
type Gateway interface {
	FetchActiveSession(ctx context.Context, teacherID int64) (gradingsession.Session, error)
	CreateSession(ctx context.Context, req CreateSessionRequest) (gradingsession.Session, error)
	UpdateSession(ctx context.Context, sessionID int64, req UpdateSessionRequest) (gradingsession.Session, error)
	CompleteSession(ctx context.Context, sessionID int64) (gradingsession.Session, error)
	ListTeachers(ctx context.Context) ([]roster.Teacher, error)
	ListExams(ctx context.Context) ([]roster.Exam, error)
}

// HTTPGateway speaks the REST surface mounted by cmd/gradingd.
type HTTPGateway struct {
	BaseURL string
	Token   string // optional bearer token
	HTTP    *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *HTTPGateway) FetchActiveSession(ctx context.Context, teacherID int64) (gradingsession.Session, error) {
	var out gradingsession.Session
	q := url.Values{"teacher_id": {fmt.Sprintf("%d", teacherID)}}
	err := g.doJSON(ctx, http.MethodGet, "/grading/sessions/active", q, nil, &out)
	return out, err
}

func (g *HTTPGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (gradingsession.Session, error) {
	var out gradingsession.Session
	err := g.doJSON(ctx, http.MethodPost, "/grading/sessions", nil, req, &out)
	return out, err
}

func (g *HTTPGateway) UpdateSession(ctx context.Context, sessionID int64, req UpdateSessionRequest) (gradingsession.Session, error) {
	var out gradingsession.Session
	err := g.doJSON(ctx, http.MethodPatch, fmt.Sprintf("/grading/sessions/%d", sessionID), nil, req, &out)
	return out, err
}

func (g *HTTPGateway) CompleteSession(ctx context.Context, sessionID int64) (gradingsession.Session, error) {
	var out gradingsession.Session
	err := g.doJSON(ctx, http.MethodPost, fmt.Sprintf("/grading/sessions/%d/complete", sessionID), nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) ListTeachers(ctx context.Context) ([]roster.Teacher, error) {
	var out []roster.Teacher
	err := g.doJSON(ctx, http.MethodGet, "/teachers", nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) ListExams(ctx context.Context) ([]roster.Exam, error) {
	var out []roster.Exam
	err := g.doJSON(ctx, http.MethodGet, "/exams", nil, nil, &out)
	return out, err
}

func (g *HTTPGateway) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := g.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}
	resp, err := g.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, apiErr) != nil || (apiErr.Detail == "" && apiErr.Message == "") {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
