package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driving"
)

type mockAuthService struct {
	authenticateFn  func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
	refreshTokenFn  func(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)
	logoutFn        func(ctx context.Context, token string) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, req)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	switch token {
	case "admin-token":
		return &domain.AuthContext{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin, TeamID: "team-1"}, nil
	case "member-token":
		return &domain.AuthContext{UserID: "member-1", Email: "member@example.com", Role: domain.RoleMember, TeamID: "team-1"}, nil
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error) {
	if m.refreshTokenFn != nil {
		return m.refreshTokenFn(ctx, req)
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

type mockUserService struct {
	setupFn  func(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error)
	createFn func(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockUserService) Setup(ctx context.Context, req driving.SetupRequest) (*driving.SetupResponse, error) {
	if m.setupFn != nil {
		return m.setupFn(ctx, req)
	}
	return nil, domain.ErrForbidden
}

func (m *mockUserService) Create(ctx context.Context, req driving.CreateUserRequest) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, domain.ErrInvalidInput
}

func (m *mockUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserService) List(ctx context.Context) ([]*domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return domain.ErrNotFound
}

type mockIngestionService struct {
	ingestFn     func(ctx context.Context, req driving.IngestRequest) (*domain.Document, error)
	ingestFileFn func(ctx context.Context, req driving.IngestFileRequest) (*domain.Document, error)
	deleteFn     func(ctx context.Context, id string) error
	getFn        func(ctx context.Context, id string) (*domain.Document, error)
	listFn       func(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error)
	verifyFn     func(ctx context.Context) error
}

func (m *mockIngestionService) VerifyEmbeddingModel(ctx context.Context) error {
	if m.verifyFn != nil {
		return m.verifyFn(ctx)
	}
	return nil
}

func (m *mockIngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	if m.ingestFn != nil {
		return m.ingestFn(ctx, req)
	}
	return nil, domain.ErrServiceUnavailable
}

func (m *mockIngestionService) IngestFile(ctx context.Context, req driving.IngestFileRequest) (*domain.Document, error) {
	if m.ingestFileFn != nil {
		return m.ingestFileFn(ctx, req)
	}
	return nil, domain.ErrServiceUnavailable
}

func (m *mockIngestionService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return domain.ErrNotFound
}

func (m *mockIngestionService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestionService) List(ctx context.Context, filter domain.DocumentFilter) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

type mockQueryService struct {
	askFn       func(ctx context.Context, userID, question string) (*driving.Answer, error)
	historyFn   func(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error)
	getRecordFn func(ctx context.Context, userID, id string) (*domain.QueryRecord, error)
}

func (m *mockQueryService) Ask(ctx context.Context, userID, question string) (*driving.Answer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, userID, question)
	}
	return nil, domain.ErrServiceUnavailable
}

func (m *mockQueryService) History(ctx context.Context, userID string, limit int) ([]*domain.QueryRecord, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockQueryService) GetRecord(ctx context.Context, userID, id string) (*domain.QueryRecord, error) {
	if m.getRecordFn != nil {
		return m.getRecordFn(ctx, userID, id)
	}
	return nil, domain.ErrNotFound
}

// testServer bundles a server with the mocks behind it
type testServer struct {
	auth      *mockAuthService
	users     *mockUserService
	ingestion *mockIngestionService
	query     *mockQueryService
	runtime   *domain.RuntimeConfig
	checks    map[string]Pinger
}

func newTestServer() *testServer {
	return &testServer{
		auth:      &mockAuthService{},
		users:     &mockUserService{},
		ingestion: &mockIngestionService{},
		query:     &mockQueryService{},
		runtime:   domain.NewRuntimeConfig("memory", "memory"),
	}
}

// serve sends a request through the full middleware chain. token may be empty.
func (ts *testServer) serve(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	srv := NewServer(DefaultConfig(), Services{
		Auth:      ts.auth,
		Users:     ts.users,
		Ingestion: ts.ingestion,
		Query:     ts.query,
		Runtime:   ts.runtime,
	}, ts.checks)

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) serveJSON(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	return ts.serve(method, path, token, "application/json", reader)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func newRecorder(srv *Server, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func stringReader(s string) io.Reader {
	return strings.NewReader(s)
}

func newAuthedRequest(method, path, token string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveWith(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}
