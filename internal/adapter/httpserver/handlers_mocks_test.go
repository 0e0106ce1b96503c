package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/app"
	"github.com/lekesiz/HECS/internal/domain"
	"github.com/lekesiz/HECS/internal/platform/config"
)

// --- Mock implementations ---

type mockTaskService struct {
	createFn func(ctx context.Context, req app.CreateTaskRequest) (*domain.Task, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	listFn   func(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	updateFn func(ctx context.Context, id uuid.UUID, req app.UpdateTaskRequest) (*domain.Task, error)
	retryFn  func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
	statsFn  func(ctx context.Context) (*domain.TaskStats, error)
}

func (m *mockTaskService) Create(ctx context.Context, req app.CreateTaskRequest) (*domain.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskService) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrTaskNotFound
}

func (m *mockTaskService) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*domain.Task{}, nil
}

func (m *mockTaskService) Update(ctx context.Context, id uuid.UUID, req app.UpdateTaskRequest) (*domain.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskService) Retry(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.retryFn != nil {
		return m.retryFn(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTaskService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.TaskStats{}, nil
}

type mockDeviceService struct {
	createFn    func(ctx context.Context, req app.CreateDeviceRequest) (*domain.Device, error)
	getFn       func(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	listFn      func(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error)
	updateFn    func(ctx context.Context, id uuid.UUID, req app.UpdateDeviceRequest) (*domain.Device, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
	heartbeatFn func(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	statsFn     func(ctx context.Context) (*domain.DeviceStats, error)
}

func (m *mockDeviceService) Create(ctx context.Context, req app.CreateDeviceRequest) (*domain.Device, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDeviceService) Get(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrDeviceNotFound
}

func (m *mockDeviceService) List(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*domain.Device{}, nil
}

func (m *mockDeviceService) Update(ctx context.Context, id uuid.UUID, req app.UpdateDeviceRequest) (*domain.Device, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDeviceService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockDeviceService) Heartbeat(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	if m.heartbeatFn != nil {
		return m.heartbeatFn(ctx, id)
	}
	return nil, domain.ErrDeviceNotFound
}

func (m *mockDeviceService) Stats(ctx context.Context) (*domain.DeviceStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.DeviceStats{}, nil
}

type mockCustomerService struct {
	createFn func(ctx context.Context, req app.CreateCustomerRequest) (*domain.Customer, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	listFn   func(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error)
	updateFn func(ctx context.Context, id uuid.UUID, req app.UpdateCustomerRequest) (*domain.Customer, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCustomerService) Create(ctx context.Context, req app.CreateCustomerRequest) (*domain.Customer, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCustomerService) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrCustomerNotFound
}

func (m *mockCustomerService) List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*domain.Customer{}, nil
}

func (m *mockCustomerService) Update(ctx context.Context, id uuid.UUID, req app.UpdateCustomerRequest) (*domain.Customer, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockAuthService struct {
	loginFn       func(ctx context.Context, username, password string) (string, *domain.User, error)
	currentUserFn func(ctx context.Context, username string) (*domain.User, error)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return "", nil, domain.ErrInvalidCredentials
}

func (m *mockAuthService) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

// stubVerifier accepts the token "valid-token" for user "admin".
type stubVerifier struct{}

func (stubVerifier) Verify(token string) (string, error) {
	if token == "valid-token" {
		return "admin", nil
	}
	return "", errors.New("invalid token")
}

type testMocks struct {
	tasks     *mockTaskService
	devices   *mockDeviceService
	customers *mockCustomerService
	auth      *mockAuthService
}

func newTestServer(t *testing.T, mocks testMocks) *Server {
	t.Helper()

	if mocks.tasks == nil {
		mocks.tasks = &mockTaskService{}
	}
	if mocks.devices == nil {
		mocks.devices = &mockDeviceService{}
	}
	if mocks.customers == nil {
		mocks.customers = &mockCustomerService{}
	}
	if mocks.auth == nil {
		mocks.auth = &mockAuthService{}
	}

	cfg := &config.Config{
		AppEnv:         "test",
		Port:           "0",
		AllowedOrigins: []string{"*"},
	}

	wsHandler := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}

	return NewServer(cfg, mocks.tasks, mocks.devices, mocks.customers, mocks.auth, stubVerifier{}, wsHandler, nil)
}

// doRequest runs the request through the full router so middleware applies.
func doRequest(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func authed(req *http.Request) *http.Request {
	req.Header.Set(echo.HeaderAuthorization, "Bearer valid-token")
	return req
}
