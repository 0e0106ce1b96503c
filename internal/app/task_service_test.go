package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lekesiz/HECS/internal/domain"
)

type mockTaskRepo struct {
	createFunc        func(ctx context.Context, task *domain.Task) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	listFunc          func(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	updateFunc        func(ctx context.Context, task *domain.Task) error
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
	countByStatusFunc func(ctx context.Context) (map[domain.TaskStatus]int, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	return m.createFunc(ctx, task)
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTaskRepo) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	return m.updateFunc(ctx, task)
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockTaskRepo) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	return m.countByStatusFunc(ctx)
}

type mockDeviceRepo struct {
	createFunc        func(ctx context.Context, device *domain.Device) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	getByDeviceIDFunc func(ctx context.Context, deviceID string) (*domain.Device, error)
	listFunc          func(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error)
	updateFunc        func(ctx context.Context, device *domain.Device) error
	deleteFunc        func(ctx context.Context, id uuid.UUID) error
	countByStatusFunc func(ctx context.Context) (map[domain.DeviceStatus]int, error)
}

func (m *mockDeviceRepo) Create(ctx context.Context, device *domain.Device) error {
	return m.createFunc(ctx, device)
}

func (m *mockDeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockDeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*domain.Device, error) {
	return m.getByDeviceIDFunc(ctx, deviceID)
}

func (m *mockDeviceRepo) List(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockDeviceRepo) Update(ctx context.Context, device *domain.Device) error {
	return m.updateFunc(ctx, device)
}

func (m *mockDeviceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockDeviceRepo) CountByStatus(ctx context.Context) (map[domain.DeviceStatus]int, error) {
	return m.countByStatusFunc(ctx)
}

// recordingNotifier captures every event the services emit.
type recordingNotifier struct {
	taskEvents     []map[string]any
	deviceEvents   []map[string]any
	customerEvents []map[string]any
	userEvents     []map[string]any
}

func (r *recordingNotifier) BroadcastTaskUpdate(data map[string]any) {
	r.taskEvents = append(r.taskEvents, data)
}

func (r *recordingNotifier) BroadcastDeviceUpdate(data map[string]any) {
	r.deviceEvents = append(r.deviceEvents, data)
}

func (r *recordingNotifier) BroadcastCustomerUpdate(data map[string]any) {
	r.customerEvents = append(r.customerEvents, data)
}

func (r *recordingNotifier) NotifyUser(userID string, data map[string]any) {
	r.userEvents = append(r.userEvents, data)
}

// memTaskStore backs the mock with a single task, the common case for
// lifecycle tests.
func memTaskStore(task *domain.Task) *mockTaskRepo {
	return &mockTaskRepo{
		createFunc: func(_ context.Context, t *domain.Task) error {
			*task = *t
			return nil
		},
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Task, error) {
			if task.ID != id {
				return nil, domain.ErrTaskNotFound
			}
			copy := *task
			return &copy, nil
		},
		updateFunc: func(_ context.Context, t *domain.Task) error {
			*task = *t
			return nil
		},
		deleteFunc: func(_ context.Context, id uuid.UUID) error {
			return nil
		},
	}
}

func knownDeviceRepo(device *domain.Device) *mockDeviceRepo {
	return &mockDeviceRepo{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Device, error) {
			if device.ID != id {
				return nil, domain.ErrDeviceNotFound
			}
			return device, nil
		},
	}
}

func TestTaskService_CreateDefaults(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name:     "reboot",
		TaskType: "maintenance",
		DeviceID: device.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, domain.DefaultMaxRetries, task.MaxRetries)
	assert.Zero(t, task.RetryCount)
	assert.Nil(t, task.StartedAt)
	assert.Nil(t, task.CompletedAt)
	require.NotNil(t, task.ScheduledAt)
	assert.Equal(t, clock.Now().UTC(), *task.ScheduledAt)

	require.Len(t, notifier.taskEvents, 1)
	assert.Equal(t, "created", notifier.taskEvents[0]["action"])
	assert.Equal(t, task.ID.String(), notifier.taskEvents[0]["id"])
}

func TestTaskService_CreateValidation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&domain.Task{}), knownDeviceRepo(device), notifier, clock)

	_, err := svc.Create(context.Background(), CreateTaskRequest{TaskType: "x", DeviceID: device.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), CreateTaskRequest{Name: "x", DeviceID: device.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), CreateTaskRequest{Name: "x", TaskType: "y", DeviceID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrDeviceNotFound)

	assert.Empty(t, notifier.taskEvents)
}

func TestTaskService_UpdateRunningSetsStartedOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "update firmware", TaskType: "firmware", DeviceID: device.ID,
	})
	require.NoError(t, err)

	running := domain.TaskStatusRunning
	clock.Advance(time.Minute)
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskRequest{Status: &running})
	require.NoError(t, err)
	require.NotNil(t, updated.StartedAt)
	firstStart := *updated.StartedAt

	// A second running update must not move started_at.
	clock.Advance(time.Minute)
	updated, err = svc.Update(context.Background(), task.ID, UpdateTaskRequest{Status: &running})
	require.NoError(t, err)
	require.NotNil(t, updated.StartedAt)
	assert.Equal(t, firstStart, *updated.StartedAt)
}

func TestTaskService_UpdateTerminalSetsCompleted(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "collect logs", TaskType: "diagnostics", DeviceID: device.ID,
	})
	require.NoError(t, err)

	failed := domain.TaskStatusFailed
	msg := "device unreachable"
	clock.Advance(time.Minute)
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskRequest{
		Status:       &failed,
		ErrorMessage: &msg,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, clock.Now().UTC(), *updated.CompletedAt)
	require.NotNil(t, updated.ErrorMessage)
	assert.Equal(t, msg, *updated.ErrorMessage)

	events := notifier.taskEvents
	require.Len(t, events, 2)
	assert.Equal(t, "updated", events[1]["action"])
	assert.Equal(t, "failed", events[1]["status"])
}

func TestTaskService_UpdateRejectsUnknownStatus(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), &recordingNotifier{}, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "x", TaskType: "y", DeviceID: device.ID,
	})
	require.NoError(t, err)

	bogus := domain.TaskStatus("paused")
	_, err = svc.Update(context.Background(), task.ID, UpdateTaskRequest{Status: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestTaskService_RetryCycleExhaustsLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "deploy config", TaskType: "config", DeviceID: device.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 3, task.MaxRetries)

	running := domain.TaskStatusRunning
	failed := domain.TaskStatusFailed
	msg := "timeout"

	failOnce := func() {
		clock.Advance(time.Second)
		_, err := svc.Update(context.Background(), task.ID, UpdateTaskRequest{Status: &running})
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = svc.Update(context.Background(), task.ID, UpdateTaskRequest{Status: &failed, ErrorMessage: &msg})
		require.NoError(t, err)
	}

	for attempt := 1; attempt <= 3; attempt++ {
		failOnce()
		retried, err := svc.Retry(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, attempt, retried.RetryCount)
		assert.Equal(t, domain.TaskStatusPending, retried.Status)
		assert.Nil(t, retried.StartedAt)
		assert.Nil(t, retried.CompletedAt)
		assert.Nil(t, retried.ErrorMessage)
	}

	failOnce()
	before := stored
	_, err = svc.Retry(context.Background(), task.ID)
	assert.ErrorIs(t, err, domain.ErrRetryLimitExceeded)
	assert.Equal(t, before, stored, "rejected retry must leave the task unchanged")
}

func TestTaskService_RetryBroadcastsAfterPersist(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	repo := memTaskStore(&stored)
	svc := NewTaskService(repo, knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "x", TaskType: "y", DeviceID: device.ID,
	})
	require.NoError(t, err)

	repo.updateFunc = func(_ context.Context, t *domain.Task) error {
		return assert.AnError
	}
	_, err = svc.Retry(context.Background(), task.ID)
	require.Error(t, err)

	// Only the create event exists; a failed write emits nothing.
	require.Len(t, notifier.taskEvents, 1)
	assert.Equal(t, "created", notifier.taskEvents[0]["action"])
}

func TestTaskService_ListValidatesStatus(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{
		listFunc: func(_ context.Context, _ domain.TaskFilter) ([]*domain.Task, error) {
			return nil, nil
		},
	}, nil, &recordingNotifier{}, clockwork.NewFakeClock())

	_, err := svc.List(context.Background(), domain.TaskFilter{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.List(context.Background(), domain.TaskFilter{Status: domain.TaskStatusPending})
	assert.NoError(t, err)
}

func TestTaskService_Stats(t *testing.T) {
	svc := NewTaskService(&mockTaskRepo{
		countByStatusFunc: func(_ context.Context) (map[domain.TaskStatus]int, error) {
			return map[domain.TaskStatus]int{
				domain.TaskStatusPending:   2,
				domain.TaskStatusRunning:   1,
				domain.TaskStatusCompleted: 6,
				domain.TaskStatusFailed:    1,
			}, nil
		},
	}, nil, &recordingNotifier{}, clockwork.NewFakeClock())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 6, stats.Completed)
	assert.InDelta(t, 60.0, stats.CompletionRate, 0.001)
}

func TestTaskService_DeleteBroadcasts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	device := &domain.Device{ID: uuid.New()}
	var stored domain.Task
	notifier := &recordingNotifier{}
	svc := NewTaskService(memTaskStore(&stored), knownDeviceRepo(device), notifier, clock)

	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Name: "x", TaskType: "y", DeviceID: device.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), task.ID))

	events := notifier.taskEvents
	require.Len(t, events, 2)
	assert.Equal(t, "deleted", events[1]["action"])
}
