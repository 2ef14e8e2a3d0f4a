package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/casevault/internal/api/middleware"
	"github.com/bigkaa/casevault/internal/domain/model"
	"github.com/bigkaa/casevault/internal/domain/rbac"
	"github.com/bigkaa/casevault/internal/service"
)

// stubAuth — AuthAPI с подменяемым поведением.
type stubAuth struct {
	register       func(service.RegisterParams) (*model.Profile, error)
	authenticate   func(email, password string) (*service.LoginResult, error)
	changePassword func(userID, password string) error
	listAssignable func(rbac.Principal) (*service.AssignableUsers, error)
}

func (s *stubAuth) Register(_ context.Context, p service.RegisterParams) (*model.Profile, error) {
	return s.register(p)
}

func (s *stubAuth) Authenticate(_ context.Context, email, password string) (*service.LoginResult, error) {
	return s.authenticate(email, password)
}

func (s *stubAuth) ChangePassword(_ context.Context, userID, password string) error {
	return s.changePassword(userID, password)
}

func (s *stubAuth) ListAssignable(_ context.Context, p rbac.Principal) (*service.AssignableUsers, error) {
	return s.listAssignable(p)
}

// stubCases — CaseAPI с подменяемым поведением.
type stubCases struct {
	create    func(rbac.Principal, service.CreateCaseParams) (*service.CaseView, error)
	list      func(rbac.Principal) ([]*service.CaseView, error)
	get       func(rbac.Principal, string) (*service.CaseView, error)
	setStatus func(rbac.Principal, string, string) (*service.CaseView, error)
}

func (s *stubCases) Create(_ context.Context, p rbac.Principal, params service.CreateCaseParams) (*service.CaseView, error) {
	return s.create(p, params)
}

func (s *stubCases) List(_ context.Context, p rbac.Principal) ([]*service.CaseView, error) {
	return s.list(p)
}

func (s *stubCases) Get(_ context.Context, p rbac.Principal, id string) (*service.CaseView, error) {
	return s.get(p, id)
}

func (s *stubCases) SetStatus(_ context.Context, p rbac.Principal, id, status string) (*service.CaseView, error) {
	return s.setStatus(p, id, status)
}

// stubEvidence — EvidenceAPI с подменяемым поведением.
type stubEvidence struct {
	upload     func(rbac.Principal, service.UploadParams) (*service.EvidenceView, error)
	listByCase func(rbac.Principal, string) ([]*service.EvidenceView, error)
	verify     func(rbac.Principal, string) (*service.EvidenceView, error)
	decide     func(rbac.Principal, string, string) (*service.EvidenceView, error)
	open       func(rbac.Principal, string) (*service.EvidenceFile, error)
}

func (s *stubEvidence) Upload(_ context.Context, p rbac.Principal, params service.UploadParams) (*service.EvidenceView, error) {
	return s.upload(p, params)
}

func (s *stubEvidence) ListByCase(_ context.Context, p rbac.Principal, caseID string) ([]*service.EvidenceView, error) {
	return s.listByCase(p, caseID)
}

func (s *stubEvidence) Verify(_ context.Context, p rbac.Principal, id string) (*service.EvidenceView, error) {
	return s.verify(p, id)
}

func (s *stubEvidence) Decide(_ context.Context, p rbac.Principal, id, decision string) (*service.EvidenceView, error) {
	return s.decide(p, id, decision)
}

func (s *stubEvidence) Open(_ context.Context, p rbac.Principal, id string) (*service.EvidenceFile, error) {
	return s.open(p, id)
}

// --- Вспомогательные функции ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(auth AuthAPI, cases CaseAPI, evidence EvidenceAPI) *APIHandler {
	return NewAPIHandler(NewHealthHandler(nil), auth, cases, evidence, 1<<20, testLogger())
}

// newRequest создаёт запрос с Principal и параметрами пути chi.
func newRequest(method, target, body string, p *rbac.Principal, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := req.Context()
	if p != nil {
		ctx = middleware.WithPrincipal(ctx, *p)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}
